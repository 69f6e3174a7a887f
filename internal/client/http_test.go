package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiltersValues(t *testing.T) {
	f := DefaultFilters()
	f.SortBy = "date"
	f.Search = "golang"
	f.Hashtags = "#go"
	f.Emails = "@example.com"

	v := f.Values()
	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, "50", v.Get("page_size"))
	assert.Equal(t, "date", v.Get("sort_by"))
	assert.Equal(t, "desc", v.Get("sort_order"))
	assert.Equal(t, "golang", v.Get("search"))
	assert.Equal(t, "#go", v.Get("search_hashtags"))
	assert.Equal(t, "@example.com", v.Get("search_emails"))
	_, ok := v["search_phones"]
	assert.False(t, ok, "empty filters are omitted")
}

func TestFiltersToggleSort(t *testing.T) {
	f := DefaultFilters()
	f.Page = 4

	f.ToggleSort("date")
	assert.Equal(t, "date", f.SortBy)
	assert.Equal(t, SortDesc, f.SortOrder)
	assert.Equal(t, 1, f.Page)

	f.ToggleSort("date")
	assert.Equal(t, SortAsc, f.SortOrder)

	f.ToggleSort("date")
	assert.Equal(t, SortDesc, f.SortOrder)

	f.ToggleSort("views")
	assert.Equal(t, "views", f.SortBy)
	assert.Equal(t, SortDesc, f.SortOrder)
}

func TestFiltersFieldCoversAllParams(t *testing.T) {
	var f Filters
	for _, p := range SearchFields {
		require.NotNil(t, f.Field(p), p)
		*f.Field(p) = p
	}
	assert.Len(t, f.Values(), len(SearchFields))
	assert.Nil(t, f.Field("search_unknown"))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, (*TablePage)(nil).TotalPages())
	assert.Equal(t, 0, (&TablePage{Total: 0, PageSize: 50}).TotalPages())
	assert.Equal(t, 1, (&TablePage{Total: 50, PageSize: 50}).TotalPages())
	assert.Equal(t, 3, (&TablePage{Total: 101, PageSize: 50}).TotalPages())
}

func TestFetchTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tables/tg_objects", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "durov", r.URL.Query().Get("search"))
		json.NewEncoder(w).Encode(map[string]any{
			"rows":      []map[string]any{{"numeric_id": 1234567890123, "username": "durov"}},
			"total":     51,
			"page":      2,
			"page_size": 50,
		})
	}))
	defer srv.Close()

	f := DefaultFilters()
	f.Page = 2
	f.Search = "durov"
	page, err := NewHTTPClient(srv.URL).FetchTable(context.Background(), TableObjects, f)
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, json.Number("1234567890123"), page.Rows[0]["numeric_id"])
	assert.Equal(t, 51, page.Total)
	assert.Equal(t, 2, page.TotalPages())
}

func TestFetchStatusAndSchema(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tables/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"telegram_message":{"has_data":false,"count":0},"tg_objects":{"has_data":true,"count":3}}`))
	})
	mux.HandleFunc("/tables/tg_objects/schema", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"table":"tg_objects","columns":[{"name":"numeric_id","type":"int"},{"name":"username","type":"text"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	status, err := c.FetchStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, status[TableMessages].HasData)
	assert.Equal(t, 3, status[TableObjects].Count)

	schema, err := c.FetchSchema(context.Background(), TableObjects)
	require.NoError(t, err)
	assert.Equal(t, []string{"numeric_id", "username"}, schema.Names())
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "unknown table", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).FetchTable(context.Background(), "nope", DefaultFilters())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "unknown table")
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchServerErrorRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"rows":[],"total":0,"page":1,"page_size":50}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	c.client.RetryWaitMin = 0
	c.client.RetryWaitMax = 0
	page, err := c.FetchTable(context.Background(), TableMessages, DefaultFilters())
	require.NoError(t, err)
	assert.NotNil(t, page.Rows)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestWithRetryMaxZeroFailsFast(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, WithRetryMax(0), WithTimeout(time.Second))
	_, err := c.FetchStatus(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, time.Second, c.client.HTTPClient.Timeout)
}
