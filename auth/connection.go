package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/energia-client/transport"
)

type EndpointStatus struct {
	Path       string
	StatusCode int
	Location   string
	Err        error
}

type ConnectionReport struct {
	BaseURL   string
	Reachable bool
	Endpoints []EndpointStatus
}

var connectionPaths = []string{"/", loginPath, dashboardPath}

// CheckConnection requests a few public and protected pages and reports
// what came back. Reachable means at least one answered.
func (o *Orchestrator) CheckConnection(ctx context.Context) ConnectionReport {
	report := ConnectionReport{BaseURL: o.client.BaseURL()}
	for _, path := range connectionPaths {
		status := EndpointStatus{Path: path}
		resp, err := o.client.Do(ctx, transport.Request{Method: http.MethodGet, Path: path})
		if err != nil {
			status.Err = err
		} else {
			status.StatusCode = resp.StatusCode
			status.Location = resp.Location
			report.Reachable = true
		}
		report.Endpoints = append(report.Endpoints, status)
	}
	return report
}
