package extranet

import (
	"bytes"
	"encoding/json"
)

// FileRecord is the normalized form of one remote listing entry. Records are
// ephemeral; they exist only for the duration of a listing call.
type FileRecord struct {
	Name         string
	ID           string
	Size         int64
	LastModified string
	FolderPath   string
	IsFolder     bool
}

// Code is a remote response code. The extranet returns codes inconsistently:
// as a string, as a bare number, or as a single-element list. All three forms
// decode to the same value; anything else decodes to the empty (unknown) code.
type Code string

const (
	CodeSuccess     Code = "601"
	CodeNoAccess    Code = "720"
	CodeNotEligible Code = "704"
)

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*c = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
	case '[':
		var arr []json.RawMessage
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		if len(arr) == 1 {
			return c.UnmarshalJSON(arr[0])
		}
		*c = ""
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*c = Code(n.String())
	}
	return nil
}

// apiResponse is the common envelope for login, listing and download-error
// responses. The code may arrive in either of two fields.
type apiResponse struct {
	Code         Code              `json:"code"`
	ResponseCode Code              `json:"responseCode"`
	Status       string            `json:"status"`
	Message      string            `json:"message"`
	Token        string            `json:"token"`
	Data         []json.RawMessage `json:"data"`
}

func (r *apiResponse) code() Code {
	if r.Code != "" {
		return r.Code
	}
	return r.ResponseCode
}

func (r *apiResponse) success() bool {
	return r.code() == CodeSuccess || r.Status == "success"
}
