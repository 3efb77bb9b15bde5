package router

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/pterm/pterm"

	"github.com/thushan/switchback/internal/logger"
)

type RouteInfo struct {
	Handler     http.Handler
	Description string
	Method      string
	Order       int
	Mount       bool
}

// RouteRegistry collects admin routes so they can be wired onto a router and
// printed once at startup
type RouteRegistry struct {
	routes   map[string]RouteInfo
	logger   logger.StyledLogger
	orderSeq int
}

func NewRouteRegistry(logger logger.StyledLogger) *RouteRegistry {
	return &RouteRegistry{
		routes: make(map[string]RouteInfo),
		logger: logger,
	}
}

func (r *RouteRegistry) Register(route string, handler http.HandlerFunc, description string) {
	r.RegisterWithMethod(route, handler, description, http.MethodGet)
}

func (r *RouteRegistry) RegisterWithMethod(route string, handler http.HandlerFunc, description, method string) {
	r.add(route, RouteInfo{Handler: handler, Description: description, Method: method})
}

// Mount attaches a sub-router that owns everything below route
func (r *RouteRegistry) Mount(route string, handler http.Handler, description string) {
	r.add(route, RouteInfo{Handler: handler, Description: description, Method: "*", Mount: true})
}

func (r *RouteRegistry) add(route string, info RouteInfo) {
	info.Order = r.orderSeq
	r.routes[route] = info
	r.orderSeq++
}

func (r *RouteRegistry) WireUp(mux chi.Router) {
	for _, route := range r.ordered() {
		info := r.routes[route]
		if info.Mount {
			mux.Mount(route, info.Handler)
			continue
		}
		mux.Method(info.Method, route, info.Handler)
	}
	r.logRoutesTable()
}

func (r *RouteRegistry) ordered() []string {
	paths := make([]string, 0, len(r.routes))
	for route := range r.routes {
		paths = append(paths, route)
	}
	sort.Slice(paths, func(i, j int) bool {
		return r.routes[paths[i]].Order < r.routes[paths[j]].Order
	})
	return paths
}

func (r *RouteRegistry) logRoutesTable() {
	if len(r.routes) == 0 {
		return
	}

	tableData := [][]string{
		{"ROUTE", "METHOD", "DESCRIPTION"},
	}
	for _, route := range r.ordered() {
		info := r.routes[route]
		tableData = append(tableData, []string{route, info.Method, info.Description})
	}

	r.logger.InfoWithCount("Registered admin routes", len(r.routes))
	tableString, _ := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	fmt.Print(tableString)
}

func (r *RouteRegistry) GetRoutes() map[string]RouteInfo {
	return r.routes
}
