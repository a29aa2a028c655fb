package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/groceryshare/backend/internal/models"
	"github.com/groceryshare/backend/internal/storage"
	"github.com/groceryshare/backend/pkg/logger"
	"gorm.io/gorm"
)

type ExportFormat string

const (
	ExportFormatText ExportFormat = "txt"
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
)

func ParseExportFormat(raw string) (ExportFormat, bool) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportFormatText:
		return ExportFormatText, true
	case ExportFormatJSON:
		return ExportFormatJSON, true
	case ExportFormatCSV:
		return ExportFormatCSV, true
	default:
		return "", false
	}
}

// ExportRow is one item of the rendered export.
type ExportRow struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// Export is a rendered list snapshot ready to stream or archive.
type Export struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders a list into a downloadable document and, when an
// archive bucket is configured, keeps a copy and returns a presigned link.
type ExportService struct {
	DB            *gorm.DB
	Storage       *storage.MinIOClient
	PresignExpiry time.Duration
}

func NewExportService(db *gorm.DB, storageClient *storage.MinIOClient) *ExportService {
	return &ExportService{DB: db, Storage: storageClient, PresignExpiry: 24 * time.Hour}
}

func (e *ExportService) rows(ctx context.Context, listID uuid.UUID) ([]ExportRow, error) {
	var listItems []models.ListItem
	err := e.DB.WithContext(ctx).
		Preload("Item").
		Preload("Item.Category").
		Where("list_id = ?", listID).
		Find(&listItems).Error
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(listItems))
	for _, listItem := range listItems {
		rows = append(rows, ExportRow{
			Name:     listItem.Item.Name,
			Category: listItem.Item.Category.Name,
			Quantity: listItem.Quantity,
		})
	}
	return rows, nil
}

// Render builds the export document for a list in the requested format.
func (e *ExportService) Render(ctx context.Context, list *models.GroceryList, format ExportFormat) (*Export, error) {
	rows, err := e.rows(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	var payload []byte
	var contentType string

	switch format {
	case ExportFormatText:
		payload = renderText(list.Name, rows)
		contentType = "text/plain"
	case ExportFormatJSON:
		payload, err = json.MarshalIndent(map[string]interface{}{
			"list":  list.Name,
			"items": rows,
		}, "", "  ")
		if err != nil {
			return nil, err
		}
		contentType = "application/json"
	case ExportFormatCSV:
		payload, err = renderCSV(rows)
		if err != nil {
			return nil, err
		}
		contentType = "text/csv"
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}

	return &Export{
		Filename:    exportFilename(list.Name, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

// Archive uploads a rendered export and returns a presigned download URL.
// A missing storage client or a failed upload is not fatal; the caller
// still streams the document directly.
func (e *ExportService) Archive(ctx context.Context, export *Export) (string, bool) {
	if e.Storage == nil {
		return "", false
	}

	if err := e.Storage.Upload(ctx, export.Filename, export.Payload, export.ContentType); err != nil {
		return "", false
	}

	expiry := e.PresignExpiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	url, err := e.Storage.PresignedGetURL(ctx, export.Filename, expiry)
	if err != nil {
		logger.Error("export_presign_failed", err, map[string]interface{}{
			"object_name": export.Filename,
		})
		return "", false
	}
	return url, true
}

func renderText(listName string, rows []ExportRow) []byte {
	var b strings.Builder
	b.WriteString(listName)
	b.WriteString("\n\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("- %s (%s) x%d\n", row.Name, row.Category, row.Quantity))
	}
	return []byte(b.String())
}

func renderCSV(rows []ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"name", "category", "quantity"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.Name, row.Category, strconv.Itoa(row.Quantity)}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportFilename(listName string, format ExportFormat) string {
	slug := strings.ToLower(strings.TrimSpace(listName))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "list"
	}
	return fmt.Sprintf("%s-export-%s.%s", slug, time.Now().UTC().Format("20060102-150405"), format)
}
