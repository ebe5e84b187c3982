package teamspeak

import (
	"fmt"
	"strconv"
	"strings"
)

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`/`, `\/`,
	" ", `\s`,
	"|", `\p`,
	"\a", `\a`,
	"\b", `\b`,
	"\f", `\f`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\v", `\v`,
)

var unescaper = strings.NewReplacer(
	`\\`, `\`,
	`\/`, `/`,
	`\s`, " ",
	`\p`, "|",
	`\a`, "\a",
	`\b`, "\b",
	`\f`, "\f",
	`\n`, "\n",
	`\r`, "\r",
	`\t`, "\t",
	`\v`, "\v",
)

func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) string {
	return unescaper.Replace(s)
}

type arg struct {
	key   string
	value string
}

func kv(key string, value any) arg {
	return arg{key: key, value: fmt.Sprint(value)}
}

// command renders a query command line without the trailing newline.
func command(name string, args ...arg) string {
	var b strings.Builder
	b.WriteString(name)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(a.key)
		b.WriteByte('=')
		b.WriteString(escape(a.value))
	}
	return b.String()
}

type record map[string]string

func (r record) intValue(key string) (int, bool) {
	v, ok := r[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseRecord decodes "k1=v1 k2=v2 flag" into a record. Bare keys map to "".
func parseRecord(s string) record {
	rec := record{}
	for _, field := range strings.Fields(s) {
		key, value, _ := strings.Cut(field, "=")
		rec[key] = unescape(value)
	}
	return rec
}

// parseRecords decodes a "|" separated list of records.
func parseRecords(s string) []record {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, "|")
	out := make([]record, 0, len(parts))
	for _, p := range parts {
		out = append(out, parseRecord(p))
	}
	return out
}

// QueryError is a non-zero status returned by the server.
type QueryError struct {
	ID       int
	Msg      string
	ExtraMsg string
}

func (e *QueryError) Error() string {
	if e.ExtraMsg != "" {
		return fmt.Sprintf("query error %d: %s (%s)", e.ID, e.Msg, e.ExtraMsg)
	}
	return fmt.Sprintf("query error %d: %s", e.ID, e.Msg)
}

func isStatusLine(line string) bool {
	return strings.HasPrefix(line, "error ")
}

// parseStatus turns an "error id=N msg=..." line into nil for id=0 or a *QueryError.
func parseStatus(line string) error {
	rec := parseRecord(strings.TrimPrefix(line, "error "))
	id, ok := rec.intValue("id")
	if !ok {
		return &QueryError{ID: -1, Msg: "malformed status line: " + line}
	}
	if id == 0 {
		return nil
	}
	return &QueryError{ID: id, Msg: rec["msg"], ExtraMsg: rec["extra_msg"]}
}

// splitNotification separates "notifyname k=v ..." into its name and payload.
func splitNotification(line string) (string, string) {
	name, rest, _ := strings.Cut(line, " ")
	return name, rest
}
