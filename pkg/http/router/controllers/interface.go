package controllers

import (
	"context"
	"time"

	"github.com/lintang-b-s/bridgeroute/pkg/http/usecases"
	"github.com/lintang-b-s/bridgeroute/pkg/scoring"
)

type RoutingService interface {
	ComputeBridgeRoutes(ctx context.Context, origLat, origLon, dstLat, dstLon float64, departure time.Time,
		k int) (usecases.BridgeRoutes, error)
	BridgeRoutesBetweenNodes(ctx context.Context, from, to string, departure time.Time, k int) (usecases.BridgeRoutes, error)
	CacheStatistics() scoring.CacheStatistics
	ClearCache()
}
