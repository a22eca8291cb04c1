// Package domain holds the value types shared by every stage of the
// scan -> update -> predict -> plan -> prefetch pipeline: executable and
// map identity, the Markov edge model, and memory statistics.
package domain

import "fmt"

// ExeID is a stable, arena-assigned identifier for an Exe. It never changes
// while the entry exists in Stores.
type ExeID int

// MapID is a stable, arena-assigned identifier for a MapSegment.
type MapID int

// Invalid is the zero value for both id types and is never assigned to a
// real entry; Stores starts numbering at 1.
const Invalid = 0

func (id ExeID) String() string { return fmt.Sprintf("exe#%d", int(id)) }
func (id MapID) String() string { return fmt.Sprintf("map#%d", int(id)) }
