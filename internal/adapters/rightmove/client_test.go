package rightmove_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"soldprices/internal/adapters/rightmove"
	"soldprices/internal/domain"
)

const samplePage = `<html><head><title>House prices in Epsom</title></head><body>
<script>window.__PRELOADED_STATE__ = {"results":{"resultCount":"2","properties":[
 {"address":"12, Church Street, Epsom, Surrey KT17 4PF","propertyType":"Semi-Detached","bedrooms":3,
  "transactions":[{"displayPrice":"£450,000","dateSold":"4 Aug 2023","tenure":"Freehold","newBuild":false},
                  {"displayPrice":"£320,500","dateSold":"12 Jan 2018","tenure":"Freehold","newBuild":false}],
  "location":{"lat":51.33,"lng":-0.26},"detailUrl":"https://example.test/p/1"},
 {"address":"Flat 2, 7, High Street, Epsom KT19 8DA","propertyType":"Flat",
  "transactions":[{"displayPrice":"£210,000","dateSold":"1 Mar 2021","tenure":"Leasehold","newBuild":true}],
  "location":{"lat":51.34,"lng":-0.27}}
]}}</script>
<script>window.other = 1</script>
</body></html>`

func TestPageURL(t *testing.T) {
	cl := rightmove.New("https://www.rightmove.co.uk/", 0, 0)
	got := cl.PageURL(domain.PageQuery{Area: "Epsom", PropertyType: "SEMI_DETACHED", Tenure: "FREEHOLD", SoldInYears: 7, Page: 3})
	want := "https://www.rightmove.co.uk/house-prices/Epsom.html?propertyType=SEMI_DETACHED&soldIn=7&tenure=FREEHOLD&page=3"
	if got != want {
		t.Fatalf("url:\n got %s\nwant %s", got, want)
	}
}

func TestParseResultsPage(t *testing.T) {
	rows, err := rightmove.ParseResultsPage([]byte(samplePage))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	r := rows[0]
	if r.Address != "12, Church Street, Epsom, Surrey KT17 4PF" || r.PropertyType != "Semi-Detached" {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.Bedrooms == nil || *r.Bedrooms != 3 {
		t.Fatalf("bedrooms: %v", r.Bedrooms)
	}
	if len(r.Transactions) != 2 || r.Transactions[0].DisplayPrice != "£450,000" {
		t.Fatalf("transactions: %+v", r.Transactions)
	}
	if r.Location == nil || r.Location.Lat != 51.33 || r.Location.Lng != -0.26 {
		t.Fatalf("location: %+v", r.Location)
	}
	if !rows[1].Transactions[0].NewBuild || rows[1].Bedrooms != nil {
		t.Fatalf("second row: %+v", rows[1])
	}
}

func TestParseResultsPage_EmptyProperties(t *testing.T) {
	page := `<script>window.__PRELOADED_STATE__ = {"results":{"properties":[]}}</script>`
	rows, err := rightmove.ParseResultsPage([]byte(page))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("want no rows, got %d", len(rows))
	}
}

func TestParseResultsPage_ShapeErrors(t *testing.T) {
	cases := map[string]string{
		"no marker":       `<html><body>captcha</body></html>`,
		"unterminated":    `<script>window.__PRELOADED_STATE__ = {"results":{"properties":[]}}`,
		"bad json":        `<script>window.__PRELOADED_STATE__ = {"results":</script>`,
		"no results":      `<script>window.__PRELOADED_STATE__ = {"search":{}}</script>`,
		"no properties":   `<script>window.__PRELOADED_STATE__ = {"results":{"resultCount":"0"}}</script>`,
		"null properties": `<script>window.__PRELOADED_STATE__ = {"results":{"properties":null}}</script>`,
	}
	for name, page := range cases {
		if _, err := rightmove.ParseResultsPage([]byte(page)); !errors.Is(err, domain.ErrPayloadShape) {
			t.Fatalf("%s: want ErrPayloadShape, got %v", name, err)
		}
	}
}

func TestClient_FetchPage(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, samplePage)
	}))
	defer ts.Close()

	cl := rightmove.New(ts.URL, 0, 0)
	u := cl.PageURL(domain.PageQuery{Area: "Epsom", PropertyType: "FLAT", Tenure: "LEASEHOLD", SoldInYears: 7, Page: 1})
	rows, err := cl.FetchPage(context.Background(), u)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	if gotQuery != "propertyType=FLAT&soldIn=7&tenure=LEASEHOLD&page=1" {
		t.Fatalf("query: %s", gotQuery)
	}
}

func TestClient_FetchPage_NoRetryOnServerError(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cl := rightmove.New(ts.URL, 0, 0)
	if _, err := cl.FetchPage(context.Background(), ts.URL+"/house-prices/Epsom.html"); err == nil {
		t.Fatalf("expected error for 503")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
}

func TestClient_FetchPage_404(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	cl := rightmove.New(ts.URL, 0, 0)
	_, err := cl.FetchPage(context.Background(), ts.URL+"/house-prices/Nowhere.html")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestClient_FetchPage_DelayHonoursContext(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	cl := rightmove.New(ts.URL, time.Hour, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := cl.FetchPage(ctx, ts.URL)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("request should not be sent while waiting")
	}
}
