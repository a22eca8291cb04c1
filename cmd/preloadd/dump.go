package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/evalgo/preloadd/internal/config"
	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/engine"
	"github.com/evalgo/preloadd/internal/stores"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "print the persisted model state as JSON, without running a tick",
	RunE:  runDump,
}

type dumpExe struct {
	Path             string `json:"path"`
	TotalRunningTime uint64 `json:"total_running_time"`
}

type dumpMap struct {
	Path   string `json:"path"`
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
	Size   string `json:"size"`
}

type dumpEdge struct {
	A     string `json:"a"`
	B     string `json:"b"`
	State string `json:"state"`
}

type dumpOutput struct {
	ModelTime uint64     `json:"model_time"`
	Exes      []dumpExe  `json:"exes"`
	Maps      []dumpMap  `json:"maps"`
	Edges     []dumpEdge `json:"edges"`
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	repo, err := buildRepository(cfg)
	if err != nil {
		return fmt.Errorf("build repository: %w", err)
	}
	defer repo.Close()

	snap, err := repo.Load(context.Background())
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	now := snap.State.ModelTime
	eng, err := engine.NewFromSnapshot(cfg, engine.Services{}, snap, now)
	if err != nil {
		return fmt.Errorf("reconstitute stores: %w", err)
	}

	s := eng.Stores()
	out := dumpOutput{ModelTime: s.ModelTime}

	pathByExe := make(map[domain.ExeID]string)
	s.IterExes(func(id domain.ExeID, e *domain.Exe) {
		pathByExe[id] = string(e.Key)
		out.Exes = append(out.Exes, dumpExe{Path: string(e.Key), TotalRunningTime: e.TotalRunningTime})
	})
	var totalBytes uint64
	s.IterMaps(func(_ domain.MapID, m *domain.MapSegment) {
		totalBytes += m.Length
		out.Maps = append(out.Maps, dumpMap{Path: m.Path, Offset: m.Offset, Length: m.Length, Size: humanize.Bytes(m.Length)})
	})
	s.Markov.Iter(func(key stores.EdgeKey, edge *domain.MarkovEdge) {
		out.Edges = append(out.Edges, dumpEdge{A: pathByExe[key.A], B: pathByExe[key.B], State: edge.State.String()})
	})
	fmt.Fprintf(cmd.ErrOrStderr(), "total mapped bytes: %s\n", humanize.Bytes(totalBytes))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
