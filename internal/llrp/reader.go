//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgexfoundry/go-mod-core-contracts/clients/logger"
	"github.com/pkg/errors"
)

// DefaultPort is the IANA-assigned TCP port for LLRP.
const DefaultPort = 5084

// ErrTimeout is returned by Transact when no response arrives in time.
// It's recoverable: the pending slot is cleared, and the caller may
// retry the request; the retry gets a fresh message id.
var ErrTimeout = errors.New("timed out awaiting response")

// MessageHandler receives unsolicited messages of a registered type.
//
// Handlers run on the connection's read loop: a slow handler delays
// keepalive acks and every other inbound message, so handlers must
// return quickly and hand real work to their own goroutine or channel.
type MessageHandler func(msg Incoming)

// ReaderOpt customizes a Reader before Connect.
type ReaderOpt func(r *Reader)

// WithLogger replaces the Reader's logging client.
func WithLogger(lc logger.LoggingClient) ReaderOpt {
	return func(r *Reader) { r.lc = lc }
}

// WithDialect sets the parameter numbering the target reader speaks.
func WithDialect(d Dialect) ReaderOpt {
	return func(r *Reader) { r.dialect = d }
}

// WithTimeout sets the default Transact deadline,
// used when the caller's context carries none.
func WithTimeout(d time.Duration) ReaderOpt {
	return func(r *Reader) { r.timeout = d }
}

// WithKeepaliveInterval makes the Reader send its own KEEPALIVE
// whenever the connection has been idle for the given duration.
// The reader's ack is welcome but its absence is not an error.
// Zero (the default) disables outbound keepalives.
func WithKeepaliveInterval(d time.Duration) ReaderOpt {
	return func(r *Reader) { r.kaInterval = d }
}

const defaultTimeout = 10 * time.Second

// Reader is one LLRP connection: it owns the socket, correlates
// responses to requests by message id, answers keepalives, and feeds
// everything else to registered handlers.
//
// Connections don't share any state; multiple Readers can coexist
// in one process, one per physical device.
type Reader struct {
	conn    net.Conn
	lc      logger.LoggingClient
	dialect Dialect
	timeout time.Duration

	kaInterval time.Duration
	lastActive int64 // unix nanos of the most recent read or write

	mid uint32 // last assigned message id

	// txMu serializes Transact: LLRP allows exactly one outstanding
	// request per connection, because correlation is by message id
	// with no windowing.
	txMu sync.Mutex

	// wMu guards socket writes; the read loop writes keepalive acks
	// concurrently with Transact's request sends.
	wMu sync.Mutex

	pendingMu sync.Mutex
	pending   *pendingTx

	handlerMu sync.RWMutex
	handlers  map[MessageType]MessageHandler

	done      chan struct{} // closed when the connection is torn down
	listening chan struct{} // closed when the read loop exits
	started   uint32        // set once the read loop is running
	closeOnce sync.Once
}

type pendingTx struct {
	id       uint32
	respType MessageType
	resp     chan txResult
}

type txResult struct {
	msg Incoming
	err error
}

// NewReader wraps an established net.Conn in an LLRP connection.
//
// The connection isn't usable until Connect consumes the reader's
// initial event notification.
func NewReader(conn net.Conn, opts ...ReaderOpt) *Reader {
	r := &Reader{
		conn:      conn,
		lc:        logger.NewClient("llrp", false, "", "INFO"),
		timeout:   defaultTimeout,
		handlers:  make(map[MessageType]MessageHandler),
		done:      make(chan struct{}),
		listening: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect completes the LLRP handshake and starts the read loop.
//
// LLRP readers speak first: the connection isn't ready until the
// reader sends a READER_EVENT_NOTIFICATION whose ConnectionAttemptEvent
// reports success. Anything else, including silence past the
// context deadline, fails the connection.
func (r *Reader) Connect(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		if err := r.conn.SetReadDeadline(deadline); err != nil {
			return errors.Wrap(err, "setting handshake deadline")
		}
	} else if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
		return errors.Wrap(err, "setting handshake deadline")
	}

	frame, err := r.readFrame()
	if err != nil {
		return errors.WithMessage(ErrMissingReaderEvent, err.Error())
	}
	if err := r.conn.SetReadDeadline(time.Time{}); err != nil {
		return errors.Wrap(err, "clearing handshake deadline")
	}

	if frame.Header.Type() != MsgReaderEventNotification {
		return errors.WithMessagef(ErrMissingReaderEvent,
			"reader sent %v first", frame.Header.Type())
	}

	msg, err := frame.Decode(r.dialect)
	if err != nil {
		return errors.WithMessage(ErrMissingReaderEvent, err.Error())
	}

	ren := msg.(*ReaderEventNotification)
	attempt := ren.ReaderEventNotificationData.ConnectionAttempt
	if attempt == nil {
		return errors.WithMessage(ErrMissingReaderEvent,
			"initial event notification lacks a ConnectionAttemptEvent")
	}
	if attempt.Status != ConnSuccess {
		return errors.WithMessagef(ErrMissingReaderEvent,
			"reader refused the connection: status %d", attempt.Status)
	}

	r.lc.Info("LLRP connection established",
		"remote", r.conn.RemoteAddr().String())

	r.touch()
	atomic.StoreUint32(&r.started, 1)
	go r.listen()
	if r.kaInterval > 0 {
		go r.keepaliveLoop()
	}
	return nil
}

// AddHandler registers the consumer for an unsolicited message type.
// At most one handler may be registered per type.
func (r *Reader) AddHandler(mt MessageType, h MessageHandler) error {
	r.handlerMu.Lock()
	defer r.handlerMu.Unlock()

	if _, ok := r.handlers[mt]; ok {
		return errors.Wrapf(ErrHandlerExists, "message type %v", mt)
	}
	r.handlers[mt] = h
	return nil
}

// RemoveHandler drops the handler for a message type, if any.
func (r *Reader) RemoveHandler(mt MessageType) {
	r.handlerMu.Lock()
	delete(r.handlers, mt)
	r.handlerMu.Unlock()
}

// Transact sends a request and blocks for its response.
//
// The message id is assigned here; requests are strictly sequential
// per connection, so concurrent callers queue on an internal mutex.
// If ctx carries no deadline, the Reader's default timeout applies.
// On timeout the pending slot is cleared and a late response for the
// abandoned id is quietly discarded, so a subsequent Transact is
// unaffected.
func (r *Reader) Transact(ctx context.Context, req Outgoing) (Incoming, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.txMu.Lock()
	defer r.txMu.Unlock()

	select {
	case <-r.done:
		return nil, errors.Wrap(ErrConnectionClosed, "transact")
	default:
	}

	id := atomic.AddUint32(&r.mid, 1)
	data, err := EncodeMessage(req, id, r.dialect)
	if err != nil {
		return nil, err
	}

	respType, expectsResponse := responseFor[req.Type()]

	var tx *pendingTx
	if expectsResponse {
		tx = &pendingTx{id: id, respType: respType, resp: make(chan txResult, 1)}
		r.pendingMu.Lock()
		r.pending = tx
		r.pendingMu.Unlock()
	}

	if err := r.write(data); err != nil {
		r.clearPending()
		return nil, errors.Wrapf(err, "sending %v id %d", req.Type(), id)
	}
	r.lc.Debug("sent request", "type", req.Type(), "id", id)

	if !expectsResponse {
		return nil, nil
	}

	select {
	case res := <-tx.resp:
		return res.msg, res.err
	case <-ctx.Done():
		r.clearPending()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(ErrTimeout, "%v id %d", req.Type(), id)
		}
		return nil, ctx.Err()
	case <-r.done:
		r.clearPending()
		return nil, errors.Wrapf(ErrConnectionClosed, "%v id %d", req.Type(), id)
	}
}

// Shutdown closes the connection gracefully: it asks the reader
// to end the session with CLOSE_CONNECTION, then tears down the socket
// and read loop regardless of the answer.
func (r *Reader) Shutdown(ctx context.Context) error {
	resp, err := r.Transact(ctx, &CloseConnection{})
	if err != nil {
		r.lc.Warn("graceful close failed; dropping the connection", "error", err.Error())
		return r.Close()
	}
	if rsp, ok := resp.(Responder); ok {
		if serr := rsp.Status().Err(); serr != nil {
			r.lc.Warn("reader rejected CloseConnection", "error", serr.Error())
		}
	}
	return r.Close()
}

// Close tears the connection down immediately.
//
// It is safe to call from any goroutine and more than once.
// A Transact in flight resolves with ErrConnectionClosed, and Close
// doesn't return until the read loop has fully exited.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		if err := r.conn.Close(); err != nil {
			r.lc.Debug("closing socket", "error", err.Error())
		}
	})
	if atomic.LoadUint32(&r.started) == 1 {
		<-r.listening
	}
	return nil
}

func (r *Reader) write(data []byte) error {
	r.wMu.Lock()
	defer r.wMu.Unlock()

	for len(data) > 0 {
		n, err := r.conn.Write(data)
		if err != nil {
			return r.connErr(err)
		}
		data = data[n:]
	}
	r.touch()
	return nil
}

// readFrame pulls exactly one message off the socket:
// a 10-byte header, then length-10 body bytes, looping on short reads.
func (r *Reader) readFrame() (Frame, error) {
	hdr := make([]byte, HeaderSz)
	if _, err := io.ReadFull(r.conn, hdr); err != nil {
		return Frame{}, r.connErr(err)
	}

	h, err := DecodeHeader(hdr)
	if err != nil {
		return Frame{}, err
	}

	body := make([]byte, h.BodyLength())
	if _, err := io.ReadFull(r.conn, body); err != nil {
		return Frame{}, r.connErr(err)
	}

	r.touch()
	return Frame{Header: h, Body: body}, nil
}

// connErr maps socket errors to ErrConnectionClosed; a zero-byte read
// mid-header or mid-body means the peer disconnected.
func (r *Reader) connErr(err error) error {
	select {
	case <-r.done:
		return errors.Wrap(ErrConnectionClosed, "connection shut down")
	default:
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrap(ErrConnectionClosed, "peer disconnected")
	}
	return errors.Wrap(ErrConnectionClosed, err.Error())
}

// listen is the background read loop. It owns all socket reads.
// Each frame resolves the pending transaction, answers a keepalive,
// or dispatches to a registered handler. Decode failures on
// unsolicited traffic drop the frame, not the connection.
func (r *Reader) listen() {
	defer close(r.listening)

	for {
		frame, err := r.readFrame()
		if err != nil {
			r.failPending(err)
			select {
			case <-r.done:
			default:
				r.lc.Warn("read loop ending", "error", err.Error())
			}
			return
		}
		r.dispatch(frame)
	}
}

func (r *Reader) dispatch(frame Frame) {
	h := frame.Header

	// Keepalives are acked inline before anything else sees the frame;
	// a delayed ack and a dead connection look the same to the reader.
	if h.Type() == MsgKeepAlive {
		r.ackKeepalive(h.ID())
	}

	msg, err := frame.Decode(r.dialect)

	if tx := r.takePending(h); tx != nil {
		if err != nil {
			tx.resp <- txResult{err: err}
		} else {
			tx.resp <- txResult{msg: msg}
		}
		return
	}

	if err != nil {
		r.lc.Error("dropping undecodable frame",
			"type", h.Type(), "id", h.ID(), "error", err.Error())
		return
	}

	r.handlerMu.RLock()
	handler, ok := r.handlers[h.Type()]
	r.handlerMu.RUnlock()

	if !ok {
		// Covers both unregistered notification types and responses
		// whose transaction already timed out and cleared its slot.
		r.lc.Debug("dropping message with no consumer",
			"type", h.Type(), "id", h.ID())
		return
	}
	handler(msg)
}

func (r *Reader) ackKeepalive(id uint32) {
	data, err := EncodeMessage(&KeepAliveAck{}, id, r.dialect)
	if err != nil {
		r.lc.Error("encoding keepalive ack", "error", err.Error())
		return
	}
	if err := r.write(data); err != nil {
		r.lc.Warn("sending keepalive ack", "error", err.Error())
		return
	}
	r.lc.Debug("acked keepalive", "id", id)
}

// takePending claims the pending transaction if the frame answers it.
func (r *Reader) takePending(h Header) *pendingTx {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()

	if r.pending == nil || r.pending.id != h.ID() {
		return nil
	}
	// ERROR_MESSAGE answers any request the reader couldn't process.
	if h.Type() != r.pending.respType && h.Type() != MsgErrorMessage {
		return nil
	}

	tx := r.pending
	r.pending = nil
	return tx
}

func (r *Reader) clearPending() {
	r.pendingMu.Lock()
	r.pending = nil
	r.pendingMu.Unlock()
}

func (r *Reader) failPending(err error) {
	r.pendingMu.Lock()
	tx := r.pending
	r.pending = nil
	r.pendingMu.Unlock()

	if tx != nil {
		tx.resp <- txResult{err: err}
	}
}

func (r *Reader) touch() {
	atomic.StoreInt64(&r.lastActive, time.Now().UnixNano())
}

// keepaliveLoop sends an outbound KEEPALIVE when the connection has
// been idle for the configured interval. The reader's KEEPALIVE_ACK
// is optional; not hearing one is not an error.
func (r *Reader) keepaliveLoop() {
	ticker := time.NewTicker(r.kaInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
		}

		last := time.Unix(0, atomic.LoadInt64(&r.lastActive))
		if time.Since(last) < r.kaInterval {
			continue
		}

		id := atomic.AddUint32(&r.mid, 1)
		data, err := EncodeMessage(&KeepAlive{}, id, r.dialect)
		if err != nil {
			r.lc.Error("encoding keepalive", "error", err.Error())
			continue
		}
		if err := r.write(data); err != nil {
			r.lc.Debug("keepalive send failed", "error", err.Error())
			return
		}
		r.lc.Debug("sent idle keepalive", "id", id)
	}
}
