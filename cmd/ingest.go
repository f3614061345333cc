package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/martinbsolomon/philoca/internal/fetcher"
)

var (
	ingestURL    string
	ingestFile   string
	ingestSheet  string
	ingestSource string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch the measurement table and store a snapshot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		header, rows, version, source, err := loadTable(ctx)
		if err != nil {
			return err
		}

		snap, err := st.CreateSnapshot(ctx, source, version, header, rows)
		if err != nil {
			return eris.Wrap(err, "ingest: create snapshot")
		}

		zap.L().Info("ingest complete",
			zap.String("snapshot", snap.ID),
			zap.String("source", source),
			zap.Int("rows", snap.RowCount),
		)
		return nil
	},
}

// loadTable reads the table from the --file path or the --url endpoint and
// returns the header, rows, content hash, and source label.
func loadTable(ctx context.Context) (header []string, rows [][]string, version, source string, err error) {
	if ingestFile != "" {
		header, rows, version, err = loadLocal(ctx, ingestFile)
		source = ingestSource
		if source == "" {
			source = ingestFile
		}
		return header, rows, version, source, err
	}

	rawURL := ingestURL
	if rawURL == "" {
		rawURL = cfg.Source.URL
	}
	if rawURL == "" {
		return nil, nil, "", "", eris.New("ingest: no source URL configured (PHILOCA_SOURCE_URL or --url)")
	}
	header, rows, version, err = loadRemote(ctx, rawURL)
	source = ingestSource
	if source == "" {
		source = rawURL
	}
	return header, rows, version, source, err
}

func loadLocal(ctx context.Context, path string) ([]string, [][]string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, "", eris.Wrapf(err, "ingest: read %s", path)
	}
	version := contentHash(data)

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		header, rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: ingestSheet})
		return header, rows, version, err
	}

	header, rows, err := fetcher.ReadCSV(ctx, bytes.NewReader(data), fetcher.CSVOptions{TrimSpace: true})
	return header, rows, version, err
}

func loadRemote(ctx context.Context, rawURL string) ([]string, [][]string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, "", eris.Wrapf(err, "ingest: parse url %s", rawURL)
	}

	var f fetcher.Fetcher
	if u.Scheme == "ftp" {
		f = fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(cfg.Source.TimeoutSecs) * time.Second,
		})
	} else {
		f = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout: time.Duration(cfg.Source.TimeoutSecs) * time.Second,
		})
	}

	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return nil, nil, "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, "", eris.Wrap(err, "ingest: read response")
	}

	header, rows, err := fetcher.ReadCSV(ctx, bytes.NewReader(data), fetcher.CSVOptions{TrimSpace: true})
	return header, rows, contentHash(data), err
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func init() {
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "table URL (default from config)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "local CSV or XLSX file instead of a URL")
	ingestCmd.Flags().StringVar(&ingestSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "source label for the snapshot")
	rootCmd.AddCommand(ingestCmd)
}
