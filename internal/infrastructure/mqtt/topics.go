package mqtt

import (
	"fmt"
	"strings"
)

// Topic segments under {prefix}/{endpoint}/.
// Payloads are JSON, see package mqttengine.
const (
	segmentRegistration = "registration"
	segmentRequest      = "request"
	segmentResponse     = "response"
	segmentNotify       = "notify"
	segmentStatus       = "status"
)

// Topics builds the MQTT topics for one LwM2M endpoint.
// Using these helpers keeps topic naming consistent between the engine,
// the tests and any external tooling.
//
//	topics := mqtt.NewTopics("lwm2m", "pressure-001")
//	topics.Notify(3323, 1, 5700)
//	// Returns: "lwm2m/pressure-001/notify/3323/1/5700"
type Topics struct {
	Prefix   string
	Endpoint string
}

// NewTopics returns topic builders for endpoint under prefix.
// Leading and trailing slashes on prefix are ignored.
func NewTopics(prefix, endpoint string) Topics {
	return Topics{Prefix: strings.Trim(prefix, "/"), Endpoint: endpoint}
}

func (t Topics) base() string {
	if t.Prefix == "" {
		return t.Endpoint
	}
	return t.Prefix + "/" + t.Endpoint
}

// Registration returns the retained registration topic.
//
// Example: lwm2m/pressure-001/registration
func (t Topics) Registration() string {
	return t.base() + "/" + segmentRegistration
}

// Request returns the topic servers publish requests to.
//
// Example: lwm2m/pressure-001/request
func (t Topics) Request() string {
	return t.base() + "/" + segmentRequest
}

// Response returns the reply topic for a request.
//
// Example: lwm2m/pressure-001/response/req-42
func (t Topics) Response(requestID string) string {
	return fmt.Sprintf("%s/%s/%s", t.base(), segmentResponse, requestID)
}

// AllResponses returns a wildcard matching every response of the endpoint.
//
// Example: lwm2m/pressure-001/response/+
func (t Topics) AllResponses() string {
	return t.base() + "/" + segmentResponse + "/+"
}

// Notify returns the observation topic of a resource.
//
// Example: lwm2m/pressure-001/notify/3323/1/5700
func (t Topics) Notify(objectID, instanceID, resourceID uint16) string {
	return fmt.Sprintf("%s/%s/%d/%d/%d", t.base(), segmentNotify, objectID, instanceID, resourceID)
}

// AllNotifications returns a wildcard matching every notification of the endpoint.
//
// Example: lwm2m/pressure-001/notify/#
func (t Topics) AllNotifications() string {
	return t.base() + "/" + segmentNotify + "/#"
}

// Status returns the retained online/offline status topic.
// It also carries the Last Will and Testament.
//
// Example: lwm2m/pressure-001/status
func (t Topics) Status() string {
	return t.base() + "/" + segmentStatus
}
