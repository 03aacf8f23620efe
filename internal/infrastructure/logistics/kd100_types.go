package logistics

import (
	"bytes"
	"encoding/json"
)

// KD100 states treated as delivered
var signedStates = map[string]bool{
	"3":   true,
	"301": true,
	"302": true,
	"303": true,
	"304": true,
}

type stateInfo struct {
	status string
	desc   string
}

var stateTable = map[string]stateInfo{
	"0":   {"in_transit", "在途"},
	"1":   {"collected", "已揽收"},
	"2":   {"problem", "疑难"},
	"3":   {"signed", "已签收"},
	"301": {"signed", "已签收"},
	"302": {"signed", "已签收"},
	"303": {"signed", "已签收"},
	"304": {"signed", "已签收"},
	"4":   {"rejected", "退签"},
	"5":   {"delivering", "派件中"},
	"6":   {"returning", "退回"},
	"7":   {"transferred", "转投"},
}

var unknownState = stateInfo{"unknown", "未知"}

// QueryResponse is the body of poll/query.do
type QueryResponse struct {
	Message    string      `json:"message"`
	Nu         string      `json:"nu,omitempty"`
	Com        string      `json:"com,omitempty"`
	State      looseString `json:"state,omitempty"`
	Status     looseString `json:"status,omitempty"`
	IsCheck    looseString `json:"ischeck,omitempty"`
	ReturnCode looseString `json:"returnCode,omitempty"`
	Data       []Track     `json:"data,omitempty"`

	// Raw keeps the body as received
	Raw json.RawMessage `json:"-"`
}

// Track is one node of the parcel route, newest first
type Track struct {
	Time     string `json:"time"`
	FTime    string `json:"ftime,omitempty"`
	Context  string `json:"context"`
	Location string `json:"location,omitempty"`
}

// IsOK reports whether KD100 accepted the query
func (r *QueryResponse) IsOK() bool {
	return r.Message == "ok"
}

// looseString accepts both JSON strings and numbers
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	*s = looseString(b)
	return nil
}
