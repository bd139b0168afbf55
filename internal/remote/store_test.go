package remote

import (
	"context"
	"testing"
)

func TestPageQuery(t *testing.T) {
	tests := []struct {
		name  string
		since bool
		want  string
	}{
		{
			name:  "with date floor",
			since: true,
			want: `SELECT "material"::text AS "material", "fecha"::text AS "fecha" FROM "sap_produccion"` +
				` WHERE "fecha" >= $3 ORDER BY "fecha", ctid LIMIT $1 OFFSET $2`,
		},
		{
			name: "whole table",
			want: `SELECT "material"::text AS "material", "fecha"::text AS "fecha" FROM "sap_produccion"` +
				` ORDER BY "fecha", ctid LIMIT $1 OFFSET $2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pageQuery("sap_produccion", []string{"material", "fecha"}, "fecha", tt.since)
			if got != tt.want {
				t.Fatalf("pageQuery =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty dsn")
	}
}
