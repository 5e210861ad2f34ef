package services

import (
	"fmt"
	"io"
	"time"

	"github.com/alimgiray/salesconsole/internal/models"
	"github.com/xuri/excelize/v2"
)

var exportSheetNames = map[models.Bucket]string{
	models.BucketToday:    "Hoy",
	models.BucketTomorrow: "Mañana",
	models.BucketUpcoming: "Próximas",
	models.BucketNoPhone:  "Sin teléfono",
}

var exportHeader = []interface{}{
	"Fecha", "Hora", "Contacto", "Email", "Reunión", "Estado", "Teléfono", "Mensaje", "WhatsApp",
}

// ExportService writes the confirmation board as an Excel workbook
type ExportService struct {
	confirmations *ConfirmationService
}

func NewExportService(confirmations *ConfirmationService) *ExportService {
	return &ExportService{confirmations: confirmations}
}

// ExportFileName returns the download name for a board exported at now
func (s *ExportService) ExportFileName(now time.Time) string {
	return fmt.Sprintf("confirmaciones-%s.xlsx", now.In(s.confirmations.Settings().Location).Format("2006-01-02"))
}

// WriteWorkbook writes one sheet per bucket, in board order
func (s *ExportService) WriteWorkbook(w io.Writer) error {
	buckets, err := s.confirmations.ListBuckets()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for _, bucket := range models.Buckets {
		sheet := exportSheetNames[bucket]
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}

		if err := s.writeSheet(f, sheet, buckets.Get(bucket)); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("remove default sheet: %w", err)
	}
	if index, err := f.GetSheetIndex(exportSheetNames[models.Buckets[0]]); err == nil {
		f.SetActiveSheet(index)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (s *ExportService) writeSheet(f *excelize.File, sheet string, items []*models.ConfirmationItem) error {
	header := exportHeader
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %s: %w", sheet, err)
	}

	loc := s.confirmations.Settings().Location
	for i, item := range items {
		start := item.StartDatetime.In(loc)
		row := []interface{}{
			start.Format("2006-01-02"),
			start.Format("15:04"),
			item.ContactName,
			item.AttendeeEmail,
			item.EventSummary,
			string(item.Status),
			stringOrEmpty(item.ToPhone),
			item.MessageText,
			stringOrEmpty(item.WhatsAppLink),
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+2, sheet, err)
		}
	}

	return nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
