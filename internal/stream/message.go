package stream

import (
	"fmt"
	"time"

	"github.com/valyala/fastjson"

	"github.com/nighthawk909/ChartSense-sub000/internal/model"
)

// wsMsg is an outbound control frame.
type wsMsg struct {
	Action string `json:"action"`
	Params string `json:"params,omitempty"`
}

func authMsg(key string) wsMsg        { return wsMsg{Action: "auth", Params: key} }
func subscribeMsg(topic string) wsMsg { return wsMsg{Action: "subscribe", Params: topic} }
func unsubscribeMsg(topic string) wsMsg {
	return wsMsg{Action: "unsubscribe", Params: topic}
}
func refreshMsg(symbol string) wsMsg { return wsMsg{Action: "refresh", Params: symbol} }

// Topic prefixes on the wire: B.<SYM> for bars, Q.<SYM> for quotes.
const (
	barTopicPrefix   = "B."
	quoteTopicPrefix = "Q."
)

func barTopic(symbol string) string   { return barTopicPrefix + symbol }
func quoteTopic(symbol string) string { return quoteTopicPrefix + symbol }

// event is one decoded push event.
type event struct {
	kind   string // "B", "Q" or "status"
	symbol string
	status string
	bar    model.Bar
	quote  model.Quote
}

var parserPool fastjson.ParserPool

// parseFrame decodes a push frame. Frames are JSON arrays of events; a bare
// object is tolerated as a one-event frame.
func parseFrame(data []byte) ([]event, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse frame: %w", err)
	}

	var items []*fastjson.Value
	if v.Type() == fastjson.TypeArray {
		items = v.GetArray()
	} else {
		items = []*fastjson.Value{v}
	}

	events := make([]event, 0, len(items))
	for _, item := range items {
		ev := string(item.GetStringBytes("ev"))
		switch ev {
		case "B":
			events = append(events, event{
				kind:   "B",
				symbol: string(item.GetStringBytes("sym")),
				bar: model.Bar{
					Time:   time.UnixMilli(item.GetInt64("t")),
					Open:   item.GetFloat64("o"),
					High:   item.GetFloat64("h"),
					Low:    item.GetFloat64("l"),
					Close:  item.GetFloat64("c"),
					Volume: item.GetFloat64("v"),
				},
			})
		case "Q":
			events = append(events, event{
				kind:   "Q",
				symbol: string(item.GetStringBytes("sym")),
				quote: model.Quote{
					Time: time.UnixMilli(item.GetInt64("t")),
					Bid:  item.GetFloat64("bp"),
					Ask:  item.GetFloat64("ap"),
					Last: item.GetFloat64("lp"),
				},
			})
		case "status":
			events = append(events, event{
				kind:   "status",
				status: string(item.GetStringBytes("status")),
			})
		default:
			// unknown event types are skipped
		}
	}
	return events, nil
}
