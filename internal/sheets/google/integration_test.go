//go:build integration

package google

import (
	"context"
	"os"
	"testing"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_MirrorRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, spreadsheetID)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	values := [][]string{
		{"Tipo de movimiento", "Mes", "Valor"},
		{"01_Ingreso", "03-25", "1500"},
	}
	if err := client.ReplaceSheet(ctx, "flujo-integration", values); err != nil {
		t.Fatalf("Failed to replace sheet: %v", err)
	}
	got, err := client.ReadRange(ctx, "flujo-integration!A:C")
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if len(got) != 2 || got[1][2] != "1500" {
		t.Fatalf("unexpected values %v", got)
	}
}
