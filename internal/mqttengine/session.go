package mqttengine

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-lwm2m/internal/engine"
	"github.com/nerrad567/gray-logic-lwm2m/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-lwm2m/internal/lwm2m"
)

// session is the state of one Run. It is only touched by the Run goroutine.
type session struct {
	e              *Engine
	endpoint       string
	topics         mqtt.Topics
	registrationID string
	disabled       bool

	objects  []engine.ObjectTree // ascending by ID
	index    map[uint16]int
	observed map[lwm2m.Path]struct{}
}

func newSession(e *Engine, endpoint string, objects []engine.ObjectTree) *session {
	s := &session{
		e:              e,
		endpoint:       endpoint,
		topics:         mqtt.NewTopics(e.prefix, endpoint),
		registrationID: newRegistrationID(),
		objects:        make([]engine.ObjectTree, len(objects)),
		index:          make(map[uint16]int, len(objects)),
		observed:       make(map[lwm2m.Path]struct{}),
	}
	// Instance maps are copied; create and delete mutate them.
	for i, o := range objects {
		o.Instances = maps.Clone(o.Instances)
		if o.Instances == nil {
			o.Instances = make(map[uint16]engine.InstanceTree)
		}
		s.objects[i] = o
	}
	slices.SortFunc(s.objects, func(a, b engine.ObjectTree) int {
		return int(a.ID) - int(b.ID)
	})
	for i, o := range s.objects {
		s.index[o.ID] = i
	}
	return s
}

func (s *session) object(id uint16) (*engine.ObjectTree, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.objects[i], true
}

func (s *session) lookup(p lwm2m.Path) (engine.ResourceHooks, bool) {
	o, ok := s.object(p.Object)
	if !ok {
		return engine.ResourceHooks{}, false
	}
	in, ok := o.Instances[p.Instance]
	if !ok {
		return engine.ResourceHooks{}, false
	}
	h, ok := in.Resources[p.Resource]
	return h, ok
}

// =============================================================================
// Registration
// =============================================================================

func (s *session) publishRegistration(update bool) error {
	reg := Registration{
		RegistrationID: s.registrationID,
		Endpoint:       s.endpoint,
		Lifetime:       int(s.e.lifetime / time.Second),
		Binding:        s.e.binding,
		Links:          engine.Links(s.objects),
		Update:         update,
		Timestamp:      time.Now().UTC(),
	}
	return s.e.publishJSON(s.topics.Registration(), reg, true)
}

// deregister clears the retained registration.
func (s *session) deregister() {
	if err := s.e.client.Publish(s.topics.Registration(), nil, s.e.qos, true); err != nil {
		s.e.logger.Warn("deregistration failed", "endpoint", s.endpoint, "error", err)
		return
	}
	s.e.logger.Info("endpoint deregistered", "endpoint", s.endpoint, "registration_id", s.registrationID)
}

// disable withdraws the registration. Observations do not survive it.
func (s *session) disable() {
	s.deregister()
	s.disabled = true
	clear(s.observed)
}

// enable registers again under a fresh registration ID.
func (s *session) enable() error {
	s.registrationID = newRegistrationID()
	if err := s.publishRegistration(false); err != nil {
		return err
	}
	s.disabled = false
	return nil
}

// =============================================================================
// Notifications
// =============================================================================

func (s *session) notify(p lwm2m.Path) {
	if _, ok := s.observed[p]; !ok {
		return
	}
	h, ok := s.lookup(p)
	if !ok {
		delete(s.observed, p)
		return
	}
	n := Notification{
		Path:      p.String(),
		Value:     EncodeValue(h.Current()),
		Timestamp: time.Now().UTC(),
	}
	if err := s.e.publishJSON(s.topics.Notify(p.Object, p.Instance, p.Resource), n, false); err != nil {
		s.e.logger.Warn("notification failed", "path", n.Path, "error", err)
	}
}

// =============================================================================
// Requests
// =============================================================================

func (s *session) handleRequest(payload []byte) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.e.logger.Warn("failed to parse request", "endpoint", s.endpoint, "error", err)
		return
	}
	if !validRequestID(req.ID) {
		s.e.logger.Warn("request without usable id dropped", "endpoint", s.endpoint, "id", req.ID, "op", req.Op)
		return
	}

	resp := s.dispatch(req)
	resp.ID = req.ID
	resp.Path = req.Path()
	resp.Timestamp = time.Now().UTC()

	s.e.logger.Debug("request handled",
		"request_id", req.ID,
		"op", req.Op,
		"path", resp.Path,
		"code", resp.Code,
	)

	if err := s.e.publishJSON(s.topics.Response(req.ID), resp, false); err != nil {
		s.e.logger.Warn("failed to publish response", "request_id", req.ID, "error", err)
	}
}

func (s *session) dispatch(req Request) Response {
	if req.Object == nil {
		return failure(CodeBadRequest, "object is required")
	}
	switch req.Op {
	case OpRead:
		return s.handleRead(req)
	case OpWrite:
		return s.handleWrite(req)
	case OpExecute:
		return s.handleExecute(req)
	case OpCreate:
		return s.handleCreate(req)
	case OpDelete:
		return s.handleDelete(req)
	case OpObserve:
		return s.handleObserve(req)
	case OpCancelObserve:
		return s.handleCancelObserve(req)
	case OpDiscover:
		return s.handleDiscover(req)
	default:
		return failure(CodeBadRequest, fmt.Sprintf("unknown op %q", req.Op))
	}
}

func failure(code Code, msg string) Response {
	return Response{Code: code, Error: msg}
}

// failureFor maps a hook error to a response code.
func failureFor(err error) Response {
	switch {
	case errors.Is(err, lwm2m.ErrCapabilityMismatch):
		return failure(CodeMethodNotAllowed, err.Error())
	case errors.Is(err, lwm2m.ErrTypeMismatch), errors.Is(err, ErrInvalidRequest):
		return failure(CodeBadRequest, err.Error())
	case errors.Is(err, lwm2m.ErrNotFound):
		return failure(CodeNotFound, err.Error())
	default:
		return failure(CodeInternalError, err.Error())
	}
}

// resolve finds the resource addressed by a request that needs a full path.
func (s *session) resolve(req Request) (lwm2m.Path, engine.ResourceHooks, *Response) {
	if req.Instance == nil || req.Resource == nil {
		r := failure(CodeBadRequest, "instance and resource are required")
		return lwm2m.Path{}, engine.ResourceHooks{}, &r
	}
	p := lwm2m.Path{Object: *req.Object, Instance: *req.Instance, Resource: *req.Resource}
	h, ok := s.lookup(p)
	if !ok {
		r := failure(CodeNotFound, "no resource at "+p.String())
		return p, h, &r
	}
	return p, h, nil
}

func (s *session) handleRead(req Request) Response {
	if req.Resource != nil {
		_, h, fail := s.resolve(req)
		if fail != nil {
			return *fail
		}
		v, err := h.Read()
		if err != nil {
			return failureFor(err)
		}
		return Response{Code: CodeContent, Value: EncodeValue(v)}
	}

	if req.Instance == nil {
		return failure(CodeBadRequest, "instance is required")
	}
	o, ok := s.object(*req.Object)
	if !ok {
		return failure(CodeNotFound, fmt.Sprintf("no object %d", *req.Object))
	}
	in, ok := o.Instances[*req.Instance]
	if !ok {
		return failure(CodeNotFound, fmt.Sprintf("no instance %d/%d", o.ID, *req.Instance))
	}

	values := make(map[string]any)
	for _, rid := range engine.SortedResourceIDs(in) {
		h := in.Resources[rid]
		if !h.Variant.CanRead() {
			continue
		}
		v, err := h.Read()
		if err != nil {
			return failureFor(err)
		}
		values[strconv.Itoa(int(rid))] = EncodeValue(v)
	}
	return Response{Code: CodeContent, Resources: values}
}

func (s *session) handleWrite(req Request) Response {
	_, h, fail := s.resolve(req)
	if fail != nil {
		return *fail
	}

	// Non-writable resources get a nil candidate so the hook reports the
	// capability mismatch itself.
	var candidate any
	if h.Variant.CanWrite() {
		v, err := DecodeValue(h.Kind, req.Value)
		if err != nil {
			return failureFor(err)
		}
		candidate = v
	}

	accepted, err := h.Write(candidate)
	if err != nil {
		return failureFor(err)
	}
	if !accepted {
		return failure(CodeBadRequest, "write rejected")
	}
	return Response{Code: CodeChanged}
}

func (s *session) handleExecute(req Request) Response {
	_, h, fail := s.resolve(req)
	if fail != nil {
		return *fail
	}
	ok, err := h.Execute([]byte(req.Payload))
	if err != nil {
		return failureFor(err)
	}
	if !ok {
		return failure(CodeBadRequest, "execute rejected")
	}
	return Response{Code: CodeChanged}
}

func (s *session) handleCreate(req Request) Response {
	if req.Instance == nil {
		return failure(CodeBadRequest, "instance is required")
	}
	o, ok := s.object(*req.Object)
	if !ok {
		return failure(CodeNotFound, fmt.Sprintf("no object %d", *req.Object))
	}
	if o.Create == nil {
		return failure(CodeMethodNotAllowed, "object does not support create")
	}
	tree, ok := o.Create(*req.Instance)
	if !ok {
		return failure(CodeBadRequest, fmt.Sprintf("instance %d/%d not created", o.ID, *req.Instance))
	}
	o.Instances[tree.ID] = tree
	s.registrationChanged()
	return Response{Code: CodeCreated}
}

func (s *session) handleDelete(req Request) Response {
	if req.Instance == nil {
		return failure(CodeBadRequest, "instance is required")
	}
	o, ok := s.object(*req.Object)
	if !ok {
		return failure(CodeNotFound, fmt.Sprintf("no object %d", *req.Object))
	}
	if o.Delete == nil {
		return failure(CodeMethodNotAllowed, "object does not support delete")
	}
	iid := *req.Instance
	if !o.Delete(iid) {
		return failure(CodeNotFound, fmt.Sprintf("no instance %d/%d", o.ID, iid))
	}
	delete(o.Instances, iid)
	for p := range s.observed {
		if p.Object == o.ID && p.Instance == iid {
			delete(s.observed, p)
		}
	}
	s.registrationChanged()
	return Response{Code: CodeDeleted}
}

func (s *session) handleObserve(req Request) Response {
	p, h, fail := s.resolve(req)
	if fail != nil {
		return *fail
	}
	v, err := h.Read()
	if err != nil {
		return failureFor(err)
	}
	s.observed[p] = struct{}{}
	return Response{Code: CodeContent, Value: EncodeValue(v)}
}

func (s *session) handleCancelObserve(req Request) Response {
	p, _, fail := s.resolve(req)
	if fail != nil {
		return *fail
	}
	delete(s.observed, p)
	return Response{Code: CodeContent}
}

func (s *session) handleDiscover(req Request) Response {
	o, ok := s.object(*req.Object)
	if !ok {
		return failure(CodeNotFound, fmt.Sprintf("no object %d", *req.Object))
	}

	var links []string
	if req.Instance == nil {
		links = append(links, fmt.Sprintf("</%d>", o.ID))
	}
	for _, iid := range engine.SortedInstanceIDs(*o) {
		if req.Instance != nil && *req.Instance != iid {
			continue
		}
		in := o.Instances[iid]
		if req.Resource != nil {
			if _, ok := in.Resources[*req.Resource]; !ok {
				return failure(CodeNotFound, fmt.Sprintf("no resource %d/%d/%d", o.ID, iid, *req.Resource))
			}
		}
		links = append(links, fmt.Sprintf("</%d/%d>", o.ID, iid))
		for _, rid := range engine.SortedResourceIDs(in) {
			if req.Resource != nil && *req.Resource != rid {
				continue
			}
			links = append(links, fmt.Sprintf("</%d/%d/%d>", o.ID, iid, rid))
		}
	}
	if req.Instance != nil && len(links) == 0 {
		return failure(CodeNotFound, fmt.Sprintf("no instance %d/%d", o.ID, *req.Instance))
	}
	return Response{Code: CodeContent, Links: links}
}

// registrationChanged republishes the registration. It is a no-op while
// the endpoint is disabled.
func (s *session) registrationChanged() {
	if s.disabled {
		return
	}
	if err := s.publishRegistration(true); err != nil {
		s.e.logger.Warn("registration update failed", "endpoint", s.endpoint, "error", err)
	}
}
