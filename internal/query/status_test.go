package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tgate/dataviewer/internal/client"
)

func TestPickTable(t *testing.T) {
	tables := []string{client.TableMessages, client.TableObjects}

	tests := []struct {
		name   string
		active string
		status map[string]client.TableStatus
		want   string
	}{
		{"no status yet", client.TableMessages, nil, client.TableMessages},
		{"active has data", client.TableMessages, map[string]client.TableStatus{
			client.TableMessages: {HasData: true, Count: 10},
			client.TableObjects:  {HasData: true, Count: 3},
		}, client.TableMessages},
		{"active empty, other has data", client.TableMessages, map[string]client.TableStatus{
			client.TableMessages: {HasData: false},
			client.TableObjects:  {HasData: true, Count: 3},
		}, client.TableObjects},
		{"active missing from status", client.TableObjects, map[string]client.TableStatus{
			client.TableMessages: {HasData: true, Count: 1},
		}, client.TableMessages},
		{"everything empty", client.TableObjects, map[string]client.TableStatus{
			client.TableMessages: {},
			client.TableObjects:  {Error: "relation does not exist"},
		}, client.TableObjects},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PickTable(tt.active, tables, tt.status))
		})
	}
}

func TestAllEmptyAndSelectable(t *testing.T) {
	tables := []string{client.TableMessages, client.TableObjects}
	assert.False(t, AllEmpty(tables, nil))
	assert.True(t, AllEmpty(tables, map[string]client.TableStatus{}))
	assert.False(t, AllEmpty(tables, map[string]client.TableStatus{client.TableObjects: {HasData: true}}))

	assert.True(t, Selectable(client.TableObjects, nil))
	assert.False(t, Selectable(client.TableObjects, map[string]client.TableStatus{}))
	assert.True(t, Selectable(client.TableObjects, map[string]client.TableStatus{client.TableObjects: {HasData: true}}))
}
