package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/blip-health/blipgate/internal/model"
	"github.com/blip-health/blipgate/internal/pkg/logger"
	"github.com/blip-health/blipgate/internal/pkg/metrics"
)

var ErrScreeningMismatch = errors.New("screening results do not line up with submitted images")

// BuildNoteBody renders "Overall: X,  img: res, img: res" pairing images and
// results by position. Mismatched lengths are an error rather than a guess.
func BuildNoteBody(overall any, images, results []any) (string, error) {
	if len(images) != len(results) {
		return "", fmt.Errorf("%w: %d images, %d results", ErrScreeningMismatch, len(images), len(results))
	}
	var b strings.Builder
	b.WriteString("Overall: ")
	b.WriteString(textOf(overall))
	b.WriteString(",  ")
	for i, img := range images {
		b.WriteString(textOf(img))
		b.WriteString(": ")
		b.WriteString(textOf(results[i]))
		b.WriteString(", ")
	}
	s := b.String()
	return s[:len(s)-2], nil
}

func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return "null"
	default:
		return fmt.Sprint(t)
	}
}

// ScreeningOrchestrator turns a successful screening into a clinical note.
type ScreeningOrchestrator struct {
	upstream Forwarder
}

func NewScreeningOrchestrator(upstream Forwarder) *ScreeningOrchestrator {
	return &ScreeningOrchestrator{upstream: upstream}
}

// BuildNote assembles the note payload from the original request body and the
// upstream screening response.
func BuildNote(patientID string, staff model.CallerIdentity, requestBody, responseBody []byte) (*model.ScreeningNote, error) {
	var req struct {
		Images []any `json:"images"`
	}
	if err := decodeNumbers(requestBody, &req); err != nil {
		return nil, fmt.Errorf("decode screening request: %w", err)
	}
	var result model.ScreeningResult
	if err := decodeNumbers(responseBody, &result); err != nil {
		return nil, fmt.Errorf("decode screening result: %w", err)
	}
	body, err := BuildNoteBody(result.Overall, req.Images, result.Results)
	if err != nil {
		return nil, err
	}
	return &model.ScreeningNote{
		Title:     "Patient " + patientID + " Screening",
		Body:      body,
		PatientID: patientID,
		StaffID:   staff.StaffIDValue(),
	}, nil
}

// Submit posts the synthesized note with only Authorization and Content-Type.
// A failure is logged and returned; callers do not fail the screening on it.
func (o *ScreeningOrchestrator) Submit(ctx context.Context, authorization, patientID string, staff model.CallerIdentity, requestBody, responseBody []byte) error {
	err := o.submit(ctx, authorization, patientID, staff, requestBody, responseBody)
	if err != nil {
		metrics.ScreeningNotes.WithLabelValues("failed").Inc()
		logger.LogError(ctx, err, "screening note creation failed", "patient_id", patientID)
		return err
	}
	metrics.ScreeningNotes.WithLabelValues("created").Inc()
	return nil
}

func (o *ScreeningOrchestrator) submit(ctx context.Context, authorization, patientID string, staff model.CallerIdentity, requestBody, responseBody []byte) error {
	note, err := BuildNote(patientID, staff, requestBody, responseBody)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(note)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", authorization)
	header.Set("Content-Type", "application/json")
	resp, err := o.upstream.Forward(ctx, model.UpstreamRequest{
		Method: http.MethodPost,
		Path:   string(model.CategoryNote),
		Header: header,
		Body:   payload,
	})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("notes returned status %d", resp.StatusCode)
	}
	return nil
}

func decodeNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
