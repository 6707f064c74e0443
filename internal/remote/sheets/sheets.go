// Package sheets persists ledger tables into a Google Spreadsheet, one
// worksheet per ledger path. Table lines live in column A; cell B1 holds
// a version counter that Put compares and bumps. The Sheets API has no
// atomic compare-and-swap, so the version check closes most but not all
// of the race window; the GitHub backend is the stricter choice when two
// writers are likely.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"github.com/UdinTarmiji/finance-data/internal/remote"
)

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
}

var _ remote.ObjectStore = (*Store)(nil)

// NewFromEnv creates a client from GOOGLE_SPREADSHEET_ID and service
// account credentials in GOOGLE_SERVICE_ACCOUNT_JSON,
// GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Store, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := credentialsFromEnv()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Store{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func credentialsFromEnv() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	credentialsJSON, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return credentialsJSON, nil
}

// sheetName maps an object path to a worksheet title. Sheet titles may
// not contain slashes.
func sheetName(path string) string {
	r := strings.NewReplacer("/", "_", ".", "_")
	return r.Replace(path)
}

func (s *Store) Fetch(ctx context.Context, path string) ([]byte, string, error) {
	name := sheetName(path)
	rng := fmt.Sprintf("%s!A:B", name)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		if isMissingSheet(err) {
			return nil, "", remote.ErrNotFound
		}
		return nil, "", wrapAPIError("fetch", path, err)
	}
	if len(resp.Values) == 0 {
		return nil, "", remote.ErrNotFound
	}

	var lines []string
	version := ""
	for i, row := range resp.Values {
		if i == 0 && len(row) > 1 {
			version = strings.TrimSpace(fmt.Sprint(row[1]))
		}
		if len(row) > 0 {
			lines = append(lines, fmt.Sprint(row[0]))
		}
	}
	return []byte(strings.Join(lines, "\n") + "\n"), version, nil
}

func (s *Store) Put(ctx context.Context, path string, content []byte, prevVersion string) (string, error) {
	name := sheetName(path)

	current, exists, err := s.currentVersion(ctx, name, path)
	if err != nil {
		return "", err
	}
	if prevVersion != current {
		return "", remote.ErrConflict
	}
	if !exists {
		if err := s.addSheet(ctx, name, path); err != nil {
			return "", err
		}
	}

	next := "1"
	if current != "" {
		if n, err := strconv.ParseInt(current, 10, 64); err == nil {
			next = strconv.FormatInt(n+1, 10)
		}
	}

	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, fmt.Sprintf("%s!A:B", name), &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", wrapAPIError("put", path, err)
	}

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	values := make([][]any, len(lines))
	for i, line := range lines {
		values[i] = []any{line}
	}
	if len(values) > 0 {
		values[0] = append(values[0], next)
	}

	vr := &gsheet.ValueRange{Values: values}
	rng := fmt.Sprintf("%s!A1:B%d", name, len(values))
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return "", wrapAPIError("put", path, err)
	}
	return next, nil
}

func (s *Store) currentVersion(ctx context.Context, name, path string) (version string, exists bool, err error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, fmt.Sprintf("%s!B1", name)).Context(ctx).Do()
	if err != nil {
		if isMissingSheet(err) {
			return "", false, nil
		}
		return "", false, wrapAPIError("put", path, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		version = strings.TrimSpace(fmt.Sprint(resp.Values[0][0]))
	}
	return version, true, nil
}

func (s *Store) addSheet(ctx context.Context, name, path string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: name},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		// Racing creators are fine; the sheet exists either way.
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 400 && strings.Contains(apiErr.Message, "already exists") {
			return nil
		}
		return wrapAPIError("put", path, err)
	}
	return nil
}

// isMissingSheet detects the 400 the Values API returns when a range
// names a worksheet that does not exist.
func isMissingSheet(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == 400 && strings.Contains(apiErr.Message, "Unable to parse range")
}

func wrapAPIError(op, path string, err error) error {
	status := 0
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		status = apiErr.Code
	}
	return &remote.SyncError{Op: op, Path: path, Status: status, Err: err}
}
