package grpc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/review-insights/internal/metrics"
	"github.com/godilite/review-insights/internal/service"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const dateOnly = "2006-01-02"

// toStruct renders v through its JSON tags so responses carry the same field
// names as the cached values.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structpb.NewStruct(m)
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

func boolField(req *structpb.Struct, name string) bool {
	return req.GetFields()[name].GetBoolValue()
}

func stringList(req *structpb.Struct, name string) []string {
	var out []string
	for _, v := range req.GetFields()[name].GetListValue().GetValues() {
		if s := strings.TrimSpace(v.GetStringValue()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// parseTime accepts RFC 3339 or a bare date, which is read as midnight in loc.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateOnly, s, loc)
}

// parseQuery reads either a named "range" or explicit "from"/"to" bounds,
// plus optional "agent_ids" and "department_ids".
func parseQuery(req *structpb.Struct, now time.Time, loc *time.Location) (service.Query, error) {
	q := service.Query{
		AgentIDs:      stringList(req, "agent_ids"),
		DepartmentIDs: stringList(req, "department_ids"),
	}

	if name := stringField(req, "range"); name != "" {
		r, err := metrics.NamedRange(name, now.In(loc))
		if err != nil {
			return q, status.Errorf(codes.InvalidArgument, "unknown range %q", name)
		}
		q.Range = r
		return q, nil
	}

	from, to := stringField(req, "from"), stringField(req, "to")
	if from == "" || to == "" {
		return q, status.Error(codes.InvalidArgument, "range or from and to are required")
	}
	start, err := parseTime(from, loc)
	if err != nil {
		return q, status.Errorf(codes.InvalidArgument, "invalid from %q", from)
	}
	end, err := parseTime(to, loc)
	if err != nil {
		return q, status.Errorf(codes.InvalidArgument, "invalid to %q", to)
	}
	if !end.After(start) {
		return q, status.Error(codes.InvalidArgument, "to must be after from")
	}

	q.Range = metrics.DateRange{From: start, To: end, Label: "custom"}
	return q, nil
}
