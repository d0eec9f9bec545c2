package archiver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

type parquetEvent struct {
	Sequence   int64  `parquet:"name=sequence, type=INT64"`
	Timestamp  int64  `parquet:"name=timestamp, type=INT64"`
	Type       string `parquet:"name=type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Attributes string `parquet:"name=attributes, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Exporter periodically writes archived events above the export watermark to
// timestamped parquet files for downstream analytics.
type Exporter struct {
	store     *Store
	directory string
	batchSize int
}

// NewExporter builds an exporter rooted at directory. A zero batchSize uses
// the configuration default.
func NewExporter(store *Store, cfg ExportConfig) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Directory == "" {
		return nil, fmt.Errorf("export directory is required")
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("prepare export directory: %w", err)
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultExportBatch
	}
	return &Exporter{store: store, directory: cfg.Directory, batchSize: batch}, nil
}

// Run exports one batch. It returns the number of rows written; zero means
// the archive held nothing new.
func (e *Exporter) Run(ctx context.Context) (int, error) {
	watermark, err := e.store.ExportWatermark(ctx)
	if err != nil {
		return 0, err
	}
	records, err := e.store.PendingExport(ctx, watermark, e.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	name := fmt.Sprintf("events-%s-%d.parquet", time.Now().UTC().Format("20060102T150405Z"), records[0].Sequence)
	path := filepath.Join(e.directory, name)
	if err := writeParquet(path, records); err != nil {
		return 0, err
	}

	last := records[len(records)-1].Sequence
	if err := e.store.SetExportWatermark(ctx, last); err != nil {
		return 0, err
	}
	return len(records), nil
}

func writeParquet(path string, records []EventRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create parquet file: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(parquetEvent), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("parquet schema: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, record := range records {
		row := &parquetEvent{
			Sequence:   int64(record.Sequence),
			Timestamp:  int64(record.Timestamp),
			Type:       record.Type,
			Attributes: record.Attributes,
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("flush parquet file: %w", err)
	}
	return file.Close()
}
