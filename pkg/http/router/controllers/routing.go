package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/julienschmidt/httprouter"
	helper "github.com/lintang-b-s/bridgeroute/pkg/http/router/routerhelper"
	"go.uber.org/zap"
)

type routingAPI struct {
	routingService RoutingService
	validate       *validator.Validate
	trans          ut.Translator
	now            func() time.Time
	log            *zap.Logger
}

func New(routingService RoutingService, log *zap.Logger) *routingAPI {
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	return &routingAPI{
		routingService: routingService,
		validate:       validate,
		trans:          trans,
		now:            time.Now,
		log:            log,
	}
}

func (api *routingAPI) Routes(group *helper.RouteGroup) {
	group.GET("/computeBridgeRoutes", api.computeBridgeRoutes)
	group.GET("/bridgeRoutesByNode", api.bridgeRoutesByNode)
	group.GET("/cacheStatistics", api.cacheStatistics)
	group.DELETE("/cache", api.clearCache)
}

// computeBridgeRoutes
//
//	@Summary		rank the routes between two coordinates by bridge passability and travel time
//	@Tags			routing
//	@Param			origin_lat		query	number	true	"origin latitude"
//	@Param			origin_lon		query	number	true	"origin longitude"
//	@Param			destination_lat	query	number	true	"destination latitude"
//	@Param			destination_lon	query	number	true	"destination longitude"
//	@Param			departure_time	query	string	false	"RFC3339 departure time, default now"
//	@Param			k				query	int		false	"number of routes returned, 0 = all"
//	@Produce		json
//	@Success		200	{object}	bridgeRoutesResponse
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
//	@Router			/computeBridgeRoutes [get]
func (api *routingAPI) computeBridgeRoutes(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request bridgeRoutesRequest
		err     error
	)

	query := r.URL.Query()

	request.OriginLat, err = strconv.ParseFloat(query.Get("origin_lat"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("origin_lat is required and must be a valid float"))
		return
	}
	request.OriginLon, err = strconv.ParseFloat(query.Get("origin_lon"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("origin_lon is required and must be a valid float"))
		return
	}
	request.DestinationLat, err = strconv.ParseFloat(query.Get("destination_lat"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("destination_lat is required and must be a valid float"))
		return
	}
	request.DestinationLon, err = strconv.ParseFloat(query.Get("destination_lon"), 64)
	if err != nil {
		api.BadRequestResponse(w, r, errors.New("destination_lon is required and must be a valid float"))
		return
	}
	if request.DepartureTime, err = api.parseDepartureTime(query); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if request.K, err = parseK(query); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.BadRequestResponse(w, r, api.validationError(err))
		return
	}

	routes, err := api.routingService.ComputeBridgeRoutes(r.Context(), request.OriginLat, request.OriginLon,
		request.DestinationLat, request.DestinationLon, request.DepartureTime, request.K)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	headers := make(http.Header)
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewBridgeRoutesResponse(routes)}, headers); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

// bridgeRoutesByNode
//
//	@Summary		rank the routes between two graph nodes
//	@Tags			routing
//	@Param			from			query	string	true	"origin node id"
//	@Param			to				query	string	true	"destination node id"
//	@Param			departure_time	query	string	false	"RFC3339 departure time, default now"
//	@Param			k				query	int		false	"number of routes returned, 0 = all"
//	@Produce		json
//	@Success		200	{object}	bridgeRoutesResponse
//	@Failure		400	{object}	errorResponse
//	@Failure		404	{object}	errorResponse
//	@Router			/bridgeRoutesByNode [get]
func (api *routingAPI) bridgeRoutesByNode(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var (
		request nodeRoutesRequest
		err     error
	)

	query := r.URL.Query()
	request.From = query.Get("from")
	request.To = query.Get("to")
	if request.DepartureTime, err = api.parseDepartureTime(query); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if request.K, err = parseK(query); err != nil {
		api.BadRequestResponse(w, r, err)
		return
	}
	if err := api.validate.Struct(request); err != nil {
		api.BadRequestResponse(w, r, api.validationError(err))
		return
	}

	routes, err := api.routingService.BridgeRoutesBetweenNodes(r.Context(), request.From, request.To,
		request.DepartureTime, request.K)
	if err != nil {
		api.getStatusCode(w, r, err)
		return
	}

	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewBridgeRoutesResponse(routes)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
		return
	}
}

// cacheStatistics
//
//	@Summary	prediction cache counters
//	@Tags		cache
//	@Produce	json
//	@Success	200	{object}	cacheStatisticsResponse
//	@Router		/cacheStatistics [get]
func (api *routingAPI) cacheStatistics(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	st := api.routingService.CacheStatistics()
	if err := api.writeJSON(w, http.StatusOK, envelope{"data": NewCacheStatisticsResponse(st)}, nil); err != nil {
		api.ServerErrorResponse(w, r, err)
	}
}

// clearCache
//
//	@Summary	drop every cached prediction and reset the counters
//	@Tags		cache
//	@Success	204
//	@Router		/cache [delete]
func (api *routingAPI) clearCache(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	api.routingService.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (api *routingAPI) parseDepartureTime(query url.Values) (time.Time, error) {
	raw := query.Get("departure_time")
	if raw == "" {
		return api.now(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("departure_time must be an RFC3339 timestamp")
	}
	return t, nil
}

func parseK(query url.Values) (int, error) {
	raw := query.Get("k")
	if raw == "" {
		return 0, nil
	}
	k, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("k must be a valid int")
	}
	return k, nil
}

func (api *routingAPI) validationError(err error) error {
	vv := translateError(err, api.trans)
	vvString := []string{}
	for _, v := range vv {
		vvString = append(vvString, v.Error())
	}
	return fmt.Errorf("validation error: %v", vvString)
}
