package source

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CodeNoData is the API result code for a range past the end of the list.
const CodeNoData = "INFO-200"

type apiResult struct {
	Code    string `json:"CODE"`
	Message string `json:"MESSAGE"`
}

type bikeListEnvelope struct {
	RentBikeStatus *struct {
		ListTotalCount int             `json:"list_total_count"`
		Result         *apiResult      `json:"RESULT"`
		Row            json.RawMessage `json:"row"`
	} `json:"rentBikeStatus"`

	// Errors are reported either as a top-level RESULT block or as bare
	// CODE/MESSAGE fields.
	Result  *apiResult `json:"RESULT"`
	Code    string     `json:"CODE"`
	Message string     `json:"MESSAGE"`
}

// ParsePage classifies a bikeList response body.
func ParsePage(body []byte) Page {
	var env bikeListEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return malformed("invalid json: " + err.Error())
	}

	if st := env.RentBikeStatus; st != nil {
		p := Page{TotalCount: st.ListTotalCount}
		if st.Result != nil {
			p.Code = st.Result.Code
			p.Message = st.Result.Message
			if isErrorCode(p.Code) {
				return withReason(p, "api error "+p.Code+": "+p.Message)
			}
		}

		row := bytes.TrimSpace(st.Row)
		if len(row) == 0 || bytes.Equal(row, []byte("null")) {
			p.Status = PageEmpty
			return p
		}

		var records []json.RawMessage
		if err := json.Unmarshal(row, &records); err != nil {
			return withReason(p, "row is not an array")
		}
		if len(records) == 0 {
			p.Status = PageEmpty
			return p
		}
		p.Status = PageRecords
		p.Records = records
		return p
	}

	res := env.Result
	if res == nil && env.Code != "" {
		res = &apiResult{Code: env.Code, Message: env.Message}
	}
	if res == nil {
		return malformed("missing rentBikeStatus")
	}
	if res.Code == CodeNoData {
		return Page{Status: PageEmpty, Code: res.Code, Message: res.Message}
	}
	return withReason(Page{Code: res.Code, Message: res.Message}, "api error "+res.Code+": "+res.Message)
}

// isErrorCode reports API codes that signal a failed request. INFO-000 is
// success, INFO-200 is "no data", INFO-100 is an authentication failure.
func isErrorCode(code string) bool {
	return strings.HasPrefix(code, "ERROR-") || code == "INFO-100"
}

func malformed(reason string) Page {
	return Page{Status: PageMalformed, Reason: reason}
}

func withReason(p Page, reason string) Page {
	p.Status = PageMalformed
	p.Records = nil
	p.Reason = reason
	return p
}
