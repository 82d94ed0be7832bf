package pipeline

import (
	"fmt"

	"github.com/Watchlog-monitoring/watchlog-rum-go/pkg/event"
)

// TrackEvent dispatches a named custom event with arbitrary data.
func (p *Pipeline) TrackEvent(name string, data map[string]interface{}) {
	p.Dispatch(&event.Event{
		Type: event.TypeCustom,
		Name: name,
		Data: data,
	})
}

// TrackError dispatches an error event from an error, a string, or any
// other value. source optionally tags where the error was observed.
func (p *Pipeline) TrackError(v interface{}, source string) {
	var msg string
	switch t := v.(type) {
	case nil:
		return
	case error:
		msg = t.Error()
	case string:
		msg = t
	default:
		msg = fmt.Sprint(t)
	}
	data := map[string]interface{}{"message": msg}
	if source != "" {
		data["source"] = source
	}
	p.Dispatch(&event.Event{
		Type: event.TypeError,
		Data: data,
	})
}
