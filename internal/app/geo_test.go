package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"soldprices/internal/app"
	"soldprices/internal/domain"
)

func TestResolve_AcceptsNearbyLookup(t *testing.T) {
	g := &fakeGeocoder{result: &domain.LatLng{Lat: 51.05, Lng: -0.08}}
	r := app.NewGeoResolver(g, 10*time.Second)

	prior := &domain.LatLng{Lat: 51.0, Lng: -0.1}
	got := r.Resolve(context.Background(), "12", "Church Street", "Epsom", prior)
	if got == nil || got.Lat != 51.05 || got.Lng != -0.08 {
		t.Fatalf("want new lookup, got %+v", got)
	}
	if g.queries[0] != "12 Church Street Epsom" {
		t.Fatalf("query: %q", g.queries[0])
	}
	if !g.hadDL {
		t.Fatalf("lookup should run under a deadline")
	}
	if prior.Lat != 51.0 || prior.Lng != -0.1 {
		t.Fatalf("prior must not be mutated: %+v", prior)
	}
}

func TestResolve_RejectsOutlier(t *testing.T) {
	prior := &domain.LatLng{Lat: 51.0, Lng: -0.1}
	for _, far := range []domain.LatLng{{Lat: 51.3, Lng: -0.1}, {Lat: 51.0, Lng: 0.05}} {
		r := app.NewGeoResolver(&fakeGeocoder{result: &far}, time.Second)
		got := r.Resolve(context.Background(), "12", "Church Street", "Epsom", prior)
		if got != prior {
			t.Fatalf("lookup %+v: want prior kept, got %+v", far, got)
		}
	}
}

func TestResolve_NoPriorTakesLookup(t *testing.T) {
	r := app.NewGeoResolver(&fakeGeocoder{result: &domain.LatLng{Lat: 55, Lng: 1}}, time.Second)
	got := r.Resolve(context.Background(), "1", "High Street", "Epsom", nil)
	if got == nil || got.Lat != 55 || got.Lng != 1 {
		t.Fatalf("want lookup, got %+v", got)
	}
}

func TestResolve_NoMatchKeepsPrior(t *testing.T) {
	r := app.NewGeoResolver(&fakeGeocoder{}, time.Second)
	prior := &domain.LatLng{Lat: 51.0, Lng: -0.1}
	if got := r.Resolve(context.Background(), "1", "Nowhere Lane", "Epsom", prior); got != prior {
		t.Fatalf("want prior, got %+v", got)
	}
	if got := r.Resolve(context.Background(), "1", "Nowhere Lane", "Epsom", nil); got != nil {
		t.Fatalf("want nil, got %+v", got)
	}
}

func TestResolve_ErrorIsSwallowed(t *testing.T) {
	r := app.NewGeoResolver(&fakeGeocoder{err: errors.New("service unavailable")}, time.Second)
	prior := &domain.LatLng{Lat: 51.0, Lng: -0.1}
	if got := r.Resolve(context.Background(), "1", "High Street", "Epsom", prior); got != prior {
		t.Fatalf("want prior, got %+v", got)
	}
}

func TestResolve_CustomThreshold(t *testing.T) {
	r := app.NewGeoResolver(&fakeGeocoder{result: &domain.LatLng{Lat: 51.3, Lng: -0.1}}, time.Second)
	r.Threshold = 0.5
	prior := &domain.LatLng{Lat: 51.0, Lng: -0.1}
	if got := r.Resolve(context.Background(), "1", "High Street", "Epsom", prior); got == prior || got.Lat != 51.3 {
		t.Fatalf("want lookup accepted under wider threshold, got %+v", got)
	}
}
