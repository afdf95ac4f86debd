package extranet

import (
	"encoding/json"
	"testing"
)

func rawList(t *testing.T, items ...string) []json.RawMessage {
	t.Helper()
	raw := make([]json.RawMessage, len(items))
	for i, item := range items {
		raw[i] = json.RawMessage(item)
	}
	return raw
}

func TestNormalizeEntriesKeyVariants(t *testing.T) {
	raw := rawList(t,
		`{"name":"a.csv.gz","size":100,"lastUpdated":"2024-01-15"}`,
		`{"fileName":"b.csv","fileSize":200,"lastModified":"2024-01-16"}`,
	)

	records := normalizeEntries(raw, "/Onlinebackup")
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	if records[0].Name != "a.csv.gz" || records[0].Size != 100 || records[0].LastModified != "2024-01-15" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[1].Name != "b.csv" || records[1].Size != 200 || records[1].LastModified != "2024-01-16" {
		t.Errorf("record 1 = %+v", records[1])
	}
	for _, r := range records {
		if r.ID != r.Name {
			t.Errorf("ID = %q, want filename %q", r.ID, r.Name)
		}
		if r.FolderPath != "/Onlinebackup" {
			t.Errorf("FolderPath = %q", r.FolderPath)
		}
	}
}

func TestNormalizeEntriesFiltersFolders(t *testing.T) {
	raw := rawList(t,
		`{"name":"Onlinebackup","type":"Folder"}`,
		`{"name":"data.csv","type":"File"}`,
	)

	records := normalizeEntries(raw, "/")
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Name != "data.csv" {
		t.Errorf("Name = %q, want data.csv", records[0].Name)
	}
}

func TestNormalizeEntriesBareStrings(t *testing.T) {
	raw := rawList(t, `"report.txt"`, `"no-extension"`)

	records := normalizeEntries(raw, "/cmftp")
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if records[0].Name != "report.txt" || records[0].FolderPath != "/cmftp" {
		t.Errorf("record = %+v", records[0])
	}
}

func TestNormalizeEntriesDropsUnnameable(t *testing.T) {
	raw := rawList(t,
		`{"type":"File","size":100}`,
		`{}`,
		`42`,
	)

	if records := normalizeEntries(raw, "/"); len(records) != 0 {
		t.Errorf("records = %d, want 0", len(records))
	}
}

func TestAcceptableFile(t *testing.T) {
	accepted := []string{"x.gz", "x.csv", "x.txt", "archive.CSV.gz", "anything.dat"}
	for _, name := range accepted {
		if !acceptableFile(name) {
			t.Errorf("acceptableFile(%q) = false, want true", name)
		}
	}
	rejected := []string{"", "noextension"}
	for _, name := range rejected {
		if acceptableFile(name) {
			t.Errorf("acceptableFile(%q) = true, want false", name)
		}
	}
}
