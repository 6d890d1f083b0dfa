package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/config"
	"github.com/lintang-b-s/bridgeroute/pkg/datastructure"
	"github.com/lintang-b-s/bridgeroute/pkg/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const bridgeOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="47.6475" lon="-122.3497"/>
  <node id="2" lat="47.6521" lon="-122.3497"/>
  <way id="7">
    <nd ref="1"/><nd ref="2"/>
    <tag k="highway" v="primary"/>
    <tag k="bridge" v="movable"/>
    <tag k="bridge:ref" v="fremont"/>
  </way>
</osm>`

func TestLoadGraph(t *testing.T) {
	dir := t.TempDir()
	osmFile := filepath.Join(dir, "fremont.osm")
	require.NoError(t, os.WriteFile(osmFile, []byte(bridgeOSM), 0o644))

	g, err := LoadGraph(context.Background(), osmFile, true, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumberOfNodes())
	assert.Equal(t, []string{"fremont"}, g.BridgeIDs())

	snapshot := filepath.Join(dir, "fremont.graph")
	require.NoError(t, g.WriteGraphFile(snapshot))
	fromSnapshot, err := LoadGraph(context.Background(), snapshot, true, nil)
	require.NoError(t, err)
	assert.Equal(t, g.NumberOfEdges(), fromSnapshot.NumberOfEdges())
	assert.Equal(t, g.BridgeIDs(), fromSnapshot.BridgeIDs())
}

func TestNewPredictor(t *testing.T) {
	cfg := config.Testing()

	p := NewPredictor(cfg, "", time.Second, nil)
	mock, ok := p.(*predictor.MockPredictor)
	require.True(t, ok)
	assert.Equal(t, cfg.Prediction.DefaultBridgeProbability, mock.DefaultProbability())

	p = NewPredictor(cfg, "http://localhost:8000", time.Second, nil)
	_, ok = p.(*predictor.HTTPPredictor)
	assert.True(t, ok)
}

func TestNewEngine(t *testing.T) {
	nodes := []datastructure.Node{
		datastructure.NewNode("s", "", 47.6475, -122.3497),
		datastructure.NewNode("n", "", 47.6521, -122.3497),
	}
	g, err := datastructure.NewGraph(nodes, []datastructure.Edge{
		datastructure.NewBridgeEdge("s", "n", 31, 511, "fremont"),
	})
	require.NoError(t, err)

	cfg := config.Testing()
	p := predictor.NewMockPredictor(1, predictor.WithConstantProbability(0.75))
	e := NewEngine(g, cfg, p, nil, 0.05, nil)

	assert.Same(t, g, e.GetGraph())
	assert.Equal(t, 2, e.GetSpatialIndex().Len())
	assert.Equal(t, cfg.PathEnum, e.GetPathEnumerationService().GetConfig())

	paths, err := e.GetPathEnumerationService().EnumeratePaths("s", "n", g)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	score, err := e.GetPathScoringService().ScorePath(context.Background(), paths[0],
		time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.InDelta(t, 0.75, score.LinearProbability, 1e-9)
}
