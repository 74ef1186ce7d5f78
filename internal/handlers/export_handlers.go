package handlers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"medicine-tracker/internal/adherence"
	"medicine-tracker/internal/database"
	"medicine-tracker/internal/middleware"
	"medicine-tracker/internal/repository"
	"medicine-tracker/internal/schedule"

	"github.com/jung-kurt/gofpdf/v2"
)

// HandleExportCSV exports the user's recorded dose history as CSV
func HandleExportCSV(db *database.DB, loc *time.Location) http.HandlerFunc {
	doseRepo := repository.NewDoseRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		from, to, err := parseRangeParams(r, loc, 90)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		history, err := doseRepo.ListByUserAndDateRange(userID, from, to, 10000)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to retrieve dose history")
			return
		}

		var buf bytes.Buffer
		writer := csv.NewWriter(&buf)
		_ = writer.Write([]string{"date", "time", "medicine", "dosage", "status", "taken_at", "notes"})
		for _, d := range history {
			takenAt := ""
			if d.TakenAt.Valid {
				takenAt = d.TakenAt.Time.Format(time.RFC3339)
			}
			_ = writer.Write([]string{
				d.Date,
				d.Time,
				d.MedicineName,
				d.MedicineDosage.String,
				string(d.Status),
				takenAt,
				d.Notes.String,
			})
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to generate CSV")
			return
		}

		filename := fmt.Sprintf("dose-history-%s-to-%s.csv", from, to)
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = w.Write(buf.Bytes())
	}
}

// HandleExportPDF generates a PDF adherence report for the range
func HandleExportPDF(db *database.DB, loc *time.Location) http.HandlerFunc {
	userRepo := repository.NewUserRepository(db)

	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.GetUserID(r.Context())
		if userID == 0 {
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		from, to, err := parseRangeParams(r, loc, 30)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "An error occurred")
			return
		}

		medicines, recorded, err := loadAdherenceInputs(db, userID, from, to)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to compute adherence")
			return
		}

		today := schedule.Today(loc)
		days := adherence.Daily(medicines, recorded, from, to, today)
		summary := adherence.Summarize(days)
		perMedicine := adherence.PerMedicine(medicines, recorded, from, to, today)

		pdfBytes, err := generateAdherencePDF(user.FullName(), from, to, summary, perMedicine, days)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to generate PDF")
			return
		}

		filename := fmt.Sprintf("adherence-report-%s-to-%s.pdf", from, to)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(pdfBytes)))
		_, _ = w.Write(pdfBytes)
	}
}

func generateAdherencePDF(name, from, to string, summary adherence.Summary, perMedicine []adherence.MedicineCount, days []adherence.DayCount) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Medication Adherence Report", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Medication Adherence Report")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Patient: %s", name))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", from, to))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Doses taken: %d of %d (%.1f%%)", summary.Taken, summary.Total, summary.Rate))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Current streak: %d days    Longest streak: %d days", summary.CurrentStreak, summary.LongestStreak))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "By Medicine")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(70, 7, "Medicine", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Dosage", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Taken", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Missed", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Rate", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, m := range perMedicine {
		pdf.CellFormat(70, 7, m.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, m.Dosage, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, strconv.Itoa(m.Taken), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, strconv.Itoa(m.Missed), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.1f%%", m.Rate), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "Daily Breakdown")
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(40, 7, "Date", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 7, "Taken", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Missed", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Rate", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, d := range days {
		rate := "-"
		if d.Total() > 0 {
			rate = fmt.Sprintf("%.1f%%", d.Rate())
		}
		pdf.CellFormat(40, 7, d.Date, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, strconv.Itoa(d.Taken), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, strconv.Itoa(d.Missed), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, rate, "1", 1, "R", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
