package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"clinicdesk.io/clinicdesk/internal/dal"
	"clinicdesk.io/clinicdesk/internal/metrics"
)

// Warnings attached to a fallback summary, keyed off the failure that
// forced it
const (
	WarnNoCredential      = "OpenAI API key not configured. Generated basic summary."
	WarnQuotaExceeded     = "OpenAI quota exceeded. Generated basic summary. Please add billing to your OpenAI account for AI-enhanced summaries."
	WarnRateLimited       = "OpenAI rate limit exceeded. Generated basic summary. Please try again later for AI-enhanced summaries."
	WarnInvalidCredential = "OpenAI API key is invalid. Generated basic summary. Please check your OPENAI_API_KEY environment variable."
	WarnGenerationFailed  = "Failed to generate AI summary. Generated basic summary instead."
)

// Summary sources, used as metric labels
const (
	SourceCache    = "cache"
	SourceOpenAI   = "openai"
	SourceFallback = "fallback"
)

// Result is the outcome of a summarization. Warning is empty unless the
// deterministic fallback was used in place of the external service.
type Result struct {
	Summary string `json:"summary"`
	Warning string `json:"warning,omitempty"`
	Source  string `json:"-"`
}

// Generator produces visit summaries. It prefers the external completion
// service and degrades to a deterministic template on any failure, so a
// located visit always yields a summary.
type Generator struct {
	visits        *dal.VisitModel
	patients      *dal.PatientModel
	prescriptions *dal.PrescriptionModel
	client        Completer
	now           func() time.Time
}

// NewGenerator wires the generator. A nil client means no credential is
// configured and every summary uses the fallback template.
func NewGenerator(visits *dal.VisitModel, patients *dal.PatientModel, prescriptions *dal.PrescriptionModel, client Completer) *Generator {
	return &Generator{
		visits:        visits,
		patients:      patients,
		prescriptions: prescriptions,
		client:        client,
		now:           time.Now,
	}
}

// Summarize returns the summary for a visit. A cached summary is served
// unless force is set. Freshly generated summaries are cached on the
// visit; a cache write failure is logged but does not fail the request.
func (g *Generator) Summarize(ctx context.Context, visitID string, force bool) (*Result, error) {
	visit, err := g.visits.GetByID(ctx, visitID)
	if err != nil {
		return nil, err
	}

	if visit.AISummary != "" && !force {
		metrics.RecordSummaryGeneration(SourceCache)
		return &Result{Summary: visit.AISummary, Source: SourceCache}, nil
	}

	vc := g.gatherContext(ctx, visit)

	if g.client == nil {
		return g.fallback(ctx, visitID, vc, WarnNoCredential), nil
	}

	text, err := g.client.Complete(ctx, buildPrompt(vc))
	if err != nil {
		log.Warn().Err(err).Str("visit", visitID).Msg("AI summary generation failed, using fallback")
		return g.fallback(ctx, visitID, vc, warningFor(err)), nil
	}

	g.cache(ctx, visitID, text)
	metrics.RecordSummaryGeneration(SourceOpenAI)
	return &Result{Summary: text, Source: SourceOpenAI}, nil
}

// visitContext is the denormalized material a summary is built from
type visitContext struct {
	PatientName      string
	Age              string
	Gender           string
	VisitDate        time.Time
	Diagnosis        string
	Notes            string
	PrescriptionText string
	FollowUpDate     *time.Time
}

func (g *Generator) gatherContext(ctx context.Context, visit *dal.Visit) visitContext {
	vc := visitContext{
		PatientName:  "Unknown patient",
		Age:          AgeUnknown,
		Gender:       AgeUnknown,
		VisitDate:    visit.CreatedAt,
		Diagnosis:    visit.Diagnosis,
		Notes:        visit.Notes,
		FollowUpDate: visit.FollowUpDate,
	}

	patient, err := g.patients.GetByID(ctx, visit.PatientID)
	if err != nil {
		log.Warn().Err(err).Str("patient", visit.PatientID).Msg("Patient lookup failed while summarizing")
	} else {
		vc.PatientName = strings.TrimSpace(patient.FirstName + " " + patient.LastName)
		vc.Age = Age(patient.DateOfBirth, g.now())
		if patient.Gender != "" {
			vc.Gender = patient.Gender
		}
	}

	vc.PrescriptionText = g.prescriptionText(ctx, visit)
	return vc
}

// prescriptionText renders the structured prescriptions referencing the
// visit, falling back to the visit's free-text field when there are none
func (g *Generator) prescriptionText(ctx context.Context, visit *dal.Visit) string {
	scripts, err := g.prescriptions.ListForVisit(ctx, visit.ID)
	if err != nil {
		log.Warn().Err(err).Str("visit", visit.ID).Msg("Prescription lookup failed while summarizing")
		scripts = nil
	}

	if len(scripts) == 0 {
		if visit.PrescriptionText != "" {
			return visit.PrescriptionText
		}
		return "None"
	}

	blocks := make([]string, 0, len(scripts))
	for _, p := range scripts {
		if len(p.Medications) > 0 {
			lines := make([]string, 0, len(p.Medications))
			for _, m := range p.Medications {
				lines = append(lines, fmt.Sprintf("%s - %s - %s - %s",
					orNA(m.Name), orNA(m.Dosage), orNA(m.Frequency), orNA(m.Duration)))
			}
			blocks = append(blocks, strings.Join(lines, "\n"))
		} else if p.Notes != "" {
			blocks = append(blocks, p.Notes)
		} else {
			blocks = append(blocks, "No medications specified")
		}
	}
	return strings.Join(blocks, "\n\n")
}

func orNA(s string) string {
	if s == "" {
		return AgeUnknown
	}
	return s
}

func buildPrompt(vc visitContext) string {
	notes := vc.Notes
	if notes == "" {
		notes = "No notes provided"
	}
	followUp := "None"
	if vc.FollowUpDate != nil {
		followUp = "Follow-up scheduled for: " + vc.FollowUpDate.Format("January 2, 2006")
	}

	var b strings.Builder
	b.WriteString("Summarize this patient visit clearly and professionally.\n\n")
	b.WriteString("Patient Info:\n")
	fmt.Fprintf(&b, "- Name: %s\n", vc.PatientName)
	fmt.Fprintf(&b, "- Age: %s\n", vc.Age)
	fmt.Fprintf(&b, "- Gender: %s\n\n", vc.Gender)
	fmt.Fprintf(&b, "Visit Date: %s\n", vc.VisitDate.Format(time.RFC3339))
	fmt.Fprintf(&b, "Diagnosis: %s\n\n", vc.Diagnosis)
	fmt.Fprintf(&b, "Notes:\n%s\n\n", notes)
	fmt.Fprintf(&b, "Prescriptions:\n%s\n\n", vc.PrescriptionText)
	fmt.Fprintf(&b, "Next Steps / Follow-up:\n%s\n", followUp)
	return b.String()
}

func buildFallback(vc visitContext) string {
	notes := vc.Notes
	if notes == "" {
		notes = "No additional notes provided."
	}
	followUp := "None scheduled"
	if vc.FollowUpDate != nil {
		followUp = vc.FollowUpDate.Format("January 2, 2006")
	}

	var b strings.Builder
	b.WriteString("Patient Visit Summary\n\n")
	fmt.Fprintf(&b, "Patient: %s (Age: %s, %s)\n", vc.PatientName, vc.Age, vc.Gender)
	fmt.Fprintf(&b, "Visit Date: %s\n", vc.VisitDate.Format("January 2, 2006"))
	fmt.Fprintf(&b, "Diagnosis: %s\n\n", vc.Diagnosis)
	fmt.Fprintf(&b, "Clinical Notes:\n%s\n\n", notes)
	fmt.Fprintf(&b, "Prescriptions:\n%s\n\n", vc.PrescriptionText)
	fmt.Fprintf(&b, "Follow-up: %s\n\n", followUp)
	b.WriteString("---\n")
	b.WriteString("Note: This is an automatically generated summary. For AI-enhanced summaries, please ensure OpenAI API quota is available.")
	return b.String()
}

func (g *Generator) fallback(ctx context.Context, visitID string, vc visitContext, warning string) *Result {
	text := buildFallback(vc)
	g.cache(ctx, visitID, text)
	metrics.RecordSummaryGeneration(SourceFallback)
	return &Result{Summary: text, Warning: warning, Source: SourceFallback}
}

func (g *Generator) cache(ctx context.Context, visitID, text string) {
	if err := g.visits.UpdateSummary(ctx, visitID, text); err != nil {
		log.Error().Err(err).Str("visit", visitID).Msg("Failed to cache summary on visit")
	}
}

func warningFor(err error) string {
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return WarnQuotaExceeded
	case errors.Is(err, ErrRateLimited):
		return WarnRateLimited
	case errors.Is(err, ErrInvalidCredential):
		return WarnInvalidCredential
	default:
		return WarnGenerationFailed
	}
}
