package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alejandrodnm/polycopy/internal/adapters/polymarket"
	"github.com/alejandrodnm/polycopy/internal/application/export"
)

// runExport vuelca el histórico de trades de una wallet como CSV y termina.
// Con -out escribe a archivo; sin él, a stdout.
func runExport(ctx context.Context, client *polymarket.Client, address, outPath string) {
	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			slog.Error("failed to create output file", "err", err, "path", outPath)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	exporter := export.NewExporter(client, slog.Default())
	rows, err := exporter.Export(ctx, address, out)
	if err != nil {
		slog.Error("export failed", "err", err, "address", address, "rows_written", rows)
		os.Exit(1)
	}

	if outPath != "" {
		slog.Info("export complete", "address", address, "rows", rows, "out", outPath)
	}
}
