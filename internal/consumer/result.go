package consumer

// Result is the outcome a handler reports for one delivery.
type Result int

const (
	// ResultAck acknowledges the delivery as processed.
	ResultAck Result = iota

	// ResultRetry asks for the delivery to be retried in-process. After the
	// configured attempts are exhausted the message is dead-lettered.
	ResultRetry

	// ResultDrop dead-letters the delivery immediately. Used for poison
	// messages that can never succeed, such as malformed payloads.
	ResultDrop
)

// String implement fmt.Stringer
func (r Result) String() string {
	switch r {
	case ResultAck:
		return "ack"
	case ResultRetry:
		return "retry"
	case ResultDrop:
		return "drop"
	default:
		return "unknown"
	}
}
