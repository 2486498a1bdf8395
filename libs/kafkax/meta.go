package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
	HeaderTenantID  = "tenant_id"
)

// EventMeta is the metadata every salonbook event carries in its Kafka headers.
type EventMeta struct {
	EventID   string
	EventType string
	TenantID  string
}

// Headers renders meta as Kafka headers, omitting empty fields.
func (m EventMeta) Headers() []kafka.Header {
	headers := make([]kafka.Header, 0, 3)
	for _, kv := range [][2]string{
		{HeaderEventID, m.EventID},
		{HeaderEventType, m.EventType},
		{HeaderTenantID, m.TenantID},
	} {
		if kv[1] != "" {
			headers = append(headers, kafka.Header{Key: kv[0], Value: []byte(kv[1])})
		}
	}
	return headers
}

// ExtractEventMeta falls back to the message key and topic when headers are missing.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, HeaderEventID),
		EventType: HeaderValue(msg.Headers, HeaderEventType),
		TenantID:  HeaderValue(msg.Headers, HeaderTenantID),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
