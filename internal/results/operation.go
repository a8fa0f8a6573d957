package results

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// operationDetail renders a cleaning step's payload as one line. An explicit
// "detail" wins; otherwise count, before/after and columns are combined.
func operationDetail(op gjson.Result) string {
	if d := op.Get("detail"); d.Type == gjson.String {
		return d.String()
	}
	var parts []string
	if c := op.Get("count"); c.Type == gjson.Number {
		parts = append(parts, fmt.Sprintf("%d affected", c.Int()))
	}
	before, after := op.Get("before"), op.Get("after")
	if before.Exists() && after.Exists() {
		parts = append(parts, fmt.Sprintf("%s → %s", scalar(before), scalar(after)))
	}
	if cols := op.Get("columns"); cols.IsArray() {
		var names []string
		for _, c := range cols.Array() {
			names = append(names, c.String())
		}
		if len(names) > 0 {
			parts = append(parts, "columns: "+strings.Join(names, ", "))
		}
	}
	return strings.Join(parts, "; ")
}

func scalar(v gjson.Result) string {
	if v.IsObject() || v.IsArray() {
		return v.Raw
	}
	return v.String()
}
