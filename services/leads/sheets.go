package leads

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Source yields the raw grid of a spreadsheet range. Abstracted so the
// import logic can be exercised without Google credentials.
type Source interface {
	Values(ctx context.Context) ([][]any, error)
}

type SheetsSource struct {
	SpreadsheetId string
	Range         string

	svc *sheets.Service
}

type SheetsConfig struct {
	SpreadsheetId string `json:"spreadsheet_id"`
	// Range in A1 notation, e.g. "Leads!A:Z".
	Range string `json:"range"`
	// CredentialsFile points at a service account JSON key. When
	// empty, GOOGLE_CREDENTIALS_B64 is consulted instead.
	CredentialsFile string `json:"credentials_file"`
}

const credentialsEnv = "GOOGLE_CREDENTIALS_B64"

func NewSheetsSource(ctx context.Context, cfg SheetsConfig) (*SheetsSource, error) {
	creds, err := readCredentials(cfg.CredentialsFile)
	if err != nil {
		return nil, err
	}

	svc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("init sheets client: %w", err)
	}

	return &SheetsSource{
		SpreadsheetId: cfg.SpreadsheetId,
		Range:         cfg.Range,
		svc:           svc,
	}, nil
}

func readCredentials(file string) ([]byte, error) {
	if file != "" {
		creds, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
		return creds, nil
	}
	encoded := os.Getenv(credentialsEnv)
	if encoded == "" {
		return nil, fmt.Errorf("no credentials file configured and %s is unset", credentialsEnv)
	}
	creds, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", credentialsEnv, err)
	}
	return creds, nil
}

func (s *SheetsSource) Values(ctx context.Context) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.SpreadsheetId, s.Range).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch sheet values: %w", err)
	}
	return resp.Values, nil
}
