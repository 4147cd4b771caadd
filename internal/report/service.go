package report

import (
	"bytes"
	"fmt"

	"github.com/signintech/gopdf"

	"medibook/internal/triage"
)

// Service renders a completed symptom assessment as a PDF summary the
// patient can download or bring to an appointment.
type Service struct {
	fontPaths []string
}

func NewService() *Service {
	return &Service{
		fontPaths: []string{
			"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
	}
}

func (s *Service) Render(a *triage.Assessment) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, ensure ttf-dejavu is installed: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Symptom Assessment Summary")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", a.CreatedAt.Format("02 Jan 2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Session: %s", a.SessionID))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Urgency: %s", a.Result.Urgency))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Assessment:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Most likely: %s (%d%%)", a.Result.TopCondition.Name, pct(a.Result.TopCondition.Confidence)))
	pdf.Br(12)
	for _, alt := range a.Result.Alternatives {
		pdf.Cell(nil, fmt.Sprintf("- %s (%d%%)", alt.Name, pct(alt.Confidence)))
		pdf.Br(12)
	}
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Recommendation:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Specialist: %s", a.Result.Recommendation.Specialist))
	pdf.Br(12)
	writeWrapped(&pdf, a.Result.Recommendation.Note)
	writeWrapped(&pdf, a.Result.Recommendation.Action)
	pdf.Br(10)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Reported answers:")
	pdf.Br(15)
	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	for _, line := range answerLines(a.Answers) {
		writeWrapped(&pdf, line)
	}

	pdf.SetY(760)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	for _, d := range a.Result.Disclaimers {
		writeWrapped(&pdf, d)
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func writeWrapped(pdf *gopdf.GoPdf, text string) {
	if text == "" {
		return
	}
	lines, _ := pdf.SplitText(text, 500)
	for _, l := range lines {
		pdf.Cell(nil, l)
		pdf.Br(12)
	}
}

func pct(confidence float64) int {
	return int(confidence*100 + 0.5)
}

// AnswerLines summarizes the recorded answers, one line per answered step,
// in conversation order.
func answerLines(answers triage.AnswerMap) []string {
	var out []string
	for _, step := range triage.StepOrder() {
		a, ok := answers[step]
		if !ok {
			continue
		}
		switch {
		case len(a.List) > 0:
			out = append(out, fmt.Sprintf("- %s: %s", stepLabel(step), joinLabels(a.List)))
		case a.Text != "":
			out = append(out, fmt.Sprintf("- %s: %s", stepLabel(step), a.Text))
		case a.Scale > 0:
			out = append(out, fmt.Sprintf("- %s: %d/10", stepLabel(step), a.Scale))
		}
	}
	return out
}

func joinLabels(labels []string) string {
	joined := ""
	for i, l := range labels {
		if i > 0 {
			joined += ", "
		}
		joined += l
	}
	return joined
}

func stepLabel(step triage.Step) string {
	switch step {
	case triage.StepGreeting:
		return "Main concern"
	case triage.StepPrimarySymptoms:
		return "Symptoms"
	case triage.StepSymptomDetails:
		return "Progression"
	case triage.StepSeverity:
		return "Severity"
	case triage.StepDuration:
		return "Duration"
	case triage.StepFeverCheck:
		return "Temperature"
	case triage.StepFollowUp:
		return "Warning signs"
	case triage.StepDifferential:
		return "Best match"
	case triage.StepAdditionalInfo:
		return "Additional symptoms"
	default:
		return string(step)
	}
}
