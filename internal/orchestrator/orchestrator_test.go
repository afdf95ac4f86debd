package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/nse-datasync/extranet-sync/internal/database"
	"github.com/nse-datasync/extranet-sync/internal/downloader"
	"github.com/nse-datasync/extranet-sync/internal/extranet"
)

type fakeClient struct {
	loginErr     error
	access       map[string]bool
	listings     map[string][]extranet.FileRecord
	loginCalls   int
	logoutCalls  int
	accessChecks []string
	listedFor    []string
}

func (c *fakeClient) Login(ctx context.Context) error {
	c.loginCalls++
	return c.loginErr
}

func (c *fakeClient) Logout() { c.logoutCalls++ }

func (c *fakeClient) CheckAccess(ctx context.Context, segment string) bool {
	c.accessChecks = append(c.accessChecks, segment)
	return c.access[segment]
}

func (c *fakeClient) GetFileList(ctx context.Context, segment string) []extranet.FileRecord {
	c.listedFor = append(c.listedFor, segment)
	return c.listings[segment]
}

type fakeEngine struct {
	results map[string]downloader.Result
	fetched []string
}

func (e *fakeEngine) Fetch(ctx context.Context, segment string, file extranet.FileRecord) downloader.Result {
	e.fetched = append(e.fetched, file.Name)
	if r, ok := e.results[file.Name]; ok {
		return r
	}
	return downloader.Result{Success: true, Status: downloader.StatusDownloaded, FileName: file.Name, Size: 1024}
}

type fakeSessions struct {
	recorded []*database.RunSession
	err      error
}

func (s *fakeSessions) RecordSession(session *database.RunSession) error {
	s.recorded = append(s.recorded, session)
	return s.err
}

func files(names ...string) []extranet.FileRecord {
	records := make([]extranet.FileRecord, len(names))
	for i, name := range names {
		records[i] = extranet.FileRecord{Name: name, ID: name, FolderPath: "/Onlinebackup"}
	}
	return records
}

func TestRunAggregatesMixedSegments(t *testing.T) {
	client := &fakeClient{
		access: map[string]bool{"CM": true, "FO": false, "SLB": true},
		listings: map[string][]extranet.FileRecord{
			"CM":  files("a.csv", "b.csv"),
			"SLB": nil,
		},
	}
	engine := &fakeEngine{}
	sessions := &fakeSessions{}

	summary, err := New(client, engine, sessions, 0).Run(context.Background(), []string{"CM", "FO", "SLB"})
	if err != nil {
		t.Fatal(err)
	}

	if !summary.Success {
		t.Error("Success = false, want true when at least one segment completes")
	}
	if summary.SegmentsCompleted != 1 || summary.SegmentsFailed != 2 {
		t.Errorf("completed/failed = %d/%d, want 1/2", summary.SegmentsCompleted, summary.SegmentsFailed)
	}
	if summary.FilesDownloaded != 2 {
		t.Errorf("FilesDownloaded = %d, want 2", summary.FilesDownloaded)
	}

	// The denied segment must never be listed.
	for _, segment := range client.listedFor {
		if segment == "FO" {
			t.Error("listing was requested for a denied segment")
		}
	}

	if len(sessions.recorded) != 1 {
		t.Fatalf("sessions recorded = %d, want 1", len(sessions.recorded))
	}
	session := sessions.recorded[0]
	if session.Status != database.SessionStatusPartialSuccess {
		t.Errorf("session status = %q, want partial_success", session.Status)
	}
	if session.Segments != "CM,FO,SLB" {
		t.Errorf("session segments = %q", session.Segments)
	}
	if session.SessionID == "" {
		t.Error("session ID should be set")
	}
	if client.logoutCalls != 1 {
		t.Errorf("logout calls = %d, want 1", client.logoutCalls)
	}
}

func TestRunLoginFailureAbortsRun(t *testing.T) {
	client := &fakeClient{loginErr: errors.New("invalid credentials")}
	sessions := &fakeSessions{}

	summary, err := New(client, &fakeEngine{}, sessions, 0).Run(context.Background(), []string{"CM"})
	if err == nil {
		t.Fatal("Run() = nil error, want login failure")
	}
	if summary.Success {
		t.Error("Success = true after login failure")
	}
	if len(client.accessChecks) != 0 {
		t.Error("no access checks should happen after login failure")
	}
	if len(sessions.recorded) != 1 || sessions.recorded[0].Status != database.SessionStatusError {
		t.Errorf("session = %+v, want one error row", sessions.recorded)
	}
}

func TestRunAllSegmentsSucceed(t *testing.T) {
	client := &fakeClient{
		access: map[string]bool{"CM": true, "FO": true},
		listings: map[string][]extranet.FileRecord{
			"CM": files("a.csv"),
			"FO": files("b.csv"),
		},
	}
	sessions := &fakeSessions{}

	summary, err := New(client, &fakeEngine{}, sessions, 0).Run(context.Background(), []string{"CM", "FO"})
	if err != nil {
		t.Fatal(err)
	}
	if summary.SegmentsFailed != 0 || !summary.Success {
		t.Errorf("summary = %+v", summary)
	}
	if sessions.recorded[0].Status != database.SessionStatusSuccess {
		t.Errorf("session status = %q, want success", sessions.recorded[0].Status)
	}
}

func TestRunNoSegmentCompletes(t *testing.T) {
	client := &fakeClient{access: map[string]bool{"CM": false, "FO": false}}
	sessions := &fakeSessions{}

	summary, err := New(client, &fakeEngine{}, sessions, 0).Run(context.Background(), []string{"CM", "FO"})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Success {
		t.Error("Success = true with zero completed segments")
	}
	if sessions.recorded[0].Status != database.SessionStatusError {
		t.Errorf("session status = %q, want error", sessions.recorded[0].Status)
	}
}

func TestRunFileFailuresDoNotDemoteSegment(t *testing.T) {
	client := &fakeClient{
		access:   map[string]bool{"CM": true},
		listings: map[string][]extranet.FileRecord{"CM": files("good.csv", "bad.csv")},
	}
	engine := &fakeEngine{results: map[string]downloader.Result{
		"bad.csv": {Status: downloader.StatusFailed, FileName: "bad.csv", Error: "HTTP 500"},
	}}

	summary, err := New(client, engine, &fakeSessions{}, 0).Run(context.Background(), []string{"CM"})
	if err != nil {
		t.Fatal(err)
	}
	if summary.SegmentsCompleted != 1 {
		t.Errorf("SegmentsCompleted = %d, want 1 despite a file failure", summary.SegmentsCompleted)
	}
	if summary.FilesDownloaded != 1 || summary.FilesFailed != 1 {
		t.Errorf("files = %d/%d, want 1 downloaded 1 failed", summary.FilesDownloaded, summary.FilesFailed)
	}
}

func TestRunSkipsCountAsDownloadedWithoutSize(t *testing.T) {
	client := &fakeClient{
		access:   map[string]bool{"CM": true},
		listings: map[string][]extranet.FileRecord{"CM": files("fresh.csv", "seen.csv")},
	}
	engine := &fakeEngine{results: map[string]downloader.Result{
		"fresh.csv": {Success: true, Status: downloader.StatusDownloaded, Size: 2 * 1024 * 1024},
		"seen.csv":  {Success: true, Status: downloader.StatusAlreadyDownloaded},
	}}

	summary, err := New(client, engine, &fakeSessions{}, 0).Run(context.Background(), []string{"CM"})
	if err != nil {
		t.Fatal(err)
	}
	if summary.FilesDownloaded != 2 {
		t.Errorf("FilesDownloaded = %d, want 2 (skips count)", summary.FilesDownloaded)
	}
	if summary.TotalSizeMB != 2.0 {
		t.Errorf("TotalSizeMB = %f, want 2.0 (skips excluded)", summary.TotalSizeMB)
	}
}

func TestRunAccessCheckedEveryRun(t *testing.T) {
	client := &fakeClient{
		access:   map[string]bool{"CM": true},
		listings: map[string][]extranet.FileRecord{"CM": files("a.csv")},
	}
	o := New(client, &fakeEngine{}, &fakeSessions{}, 0)

	for i := 0; i < 2; i++ {
		if _, err := o.Run(context.Background(), []string{"CM"}); err != nil {
			t.Fatal(err)
		}
	}
	if len(client.accessChecks) != 2 {
		t.Errorf("access checks = %d, want one per run", len(client.accessChecks))
	}
	if client.loginCalls != 2 {
		t.Errorf("login calls = %d, want one per run", client.loginCalls)
	}
}
