// Package redhub is the connection pipeline and acceptor for redhub-kv: a
// per-connection loop that drives the RESP codec (redhubkv/pkg/resp) over a
// streaming TCP socket, dispatches parsed frames through the command layer
// (redhubkv/internal/command), and executes them against a process-wide
// store (redhubkv/internal/store).
//
// The package keeps the exported shape of its namesake teacher —
// IceFireDB/redhub's Options/Action/Conn split — but drives the transport
// with net.Listener and one goroutine per connection rather than a gnet
// event loop. §5 of the spec fixes a "one task per connection, suspend only
// at read/write/spawn" concurrency model, which is goroutine-per-connection
// with blocking I/O, not a shared-reactor callback model: gnet connections
// never block on Read, so there is nothing in gnet's architecture for the
// spec's suspension-point vocabulary to refer to. A goroutine per accepted
// net.Conn is the direct Go counterpart of the original Rust
// implementation's per-connection tokio::spawn task.
package redhub

import (
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"redhubkv/internal/command"
	"redhubkv/internal/store"
	"redhubkv/pkg/frame"
	"redhubkv/pkg/resp"
)

// Action tells the connection loop what to do once a command has been
// executed. Mirrors the teacher's exported Action enum; Close is reserved
// for a future command surface (e.g. QUIT) since no command in
// GET/SET/HGET/HSET/HGETALL ever produces it today.
type Action int

const (
	// None leaves the connection open; this is the only Action this
	// server's command set ever produces.
	None Action = iota
	// Close tears the connection down after the current reply is
	// flushed.
	Close
)

// DefaultAddr is the listen address used when Options.Addr is empty,
// matching the spec's non-standard default port (6378, not Redis's 6379).
const DefaultAddr = "0.0.0.0:6378"

// defaultReadChunk is the size of the scratch buffer used for each
// conn.Read call. It only bounds how much is read per syscall; the
// accumulation buffer itself grows to fit whatever the client sends.
const defaultReadChunk = 4096

// Options configures a Server.
type Options struct {
	// Addr is the TCP address to listen on. Defaults to DefaultAddr.
	Addr string

	// ReadChunkSize overrides the per-Read scratch buffer size. Defaults
	// to 4096 bytes.
	ReadChunkSize int

	// Logger receives structured events for accept, close, and I/O
	// failure. Defaults to zap.NewNop() — a caller that wants visibility
	// should always set this explicitly (see cmd/redhub-kv).
	Logger *zap.SugaredLogger
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.ReadChunkSize <= 0 {
		o.ReadChunkSize = defaultReadChunk
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

// Conn is the per-connection state the read loop carries: the accepted
// socket, its decode accumulation buffer, and a fixed-size read scratch
// slice. Its fields are unexported, and no exported function takes or
// returns a Conn.
type Conn struct {
	netConn net.Conn
	acc     *bytebufferpool.ByteBuffer
	scratch []byte
}

// Server owns the shared store and the listener lifecycle. Every accepted
// connection runs its own goroutine against the same *store.Store — the
// store is the only resource shared across connections (§5).
type Server struct {
	opts    Options
	store   *store.Store
	log     *zap.SugaredLogger
	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// New constructs a Server bound to store s. Passing a nil store creates a
// fresh, empty one.
func New(opts Options, s *store.Store) *Server {
	opts = opts.withDefaults()
	if s == nil {
		s = store.New()
	}
	return &Server{
		opts:  opts,
		store: s,
		log:   opts.Logger,
		conns: make(map[net.Conn]struct{}),
	}
}

// ListenAndServe binds opts.Addr and runs the accept loop. It blocks until
// the listener is closed, either by Close or by a fatal Accept error.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.Wrapf(err, "redhub: listen on %s", s.opts.Addr)
	}
	s.log.Infow("listening", "addr", s.opts.Addr)
	return s.serve(ln)
}

// serve is the acceptor task: it loops accepting sockets and spawning one
// goroutine per connection, never blocking on a child's completion. Accept
// is the acceptor's only suspension point.
func (s *Server) serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()
	for {
		nc, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			return errors.Wrap(err, "redhub: accept")
		}

		s.mu.Lock()
		s.conns[nc] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(nc)
		}()
	}
}

// Close stops accepting new connections, closes every connection currently
// in flight, and waits for their goroutines to return. Closing N live
// connections can fail independently on each one; Close aggregates every
// non-nil error with multierr rather than reporting only the first, since a
// caller doing a clean shutdown needs to know about all of them. Calling
// Close before ListenAndServe/serve has bound a listener only closes
// connections that somehow already exist, which is never the case in
// practice — the listener itself is nil until ListenAndServe runs.
func (s *Server) Close() error {
	s.mu.Lock()
	s.closing = true
	ln := s.ln
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = multierr.Append(err, ln.Close())
	}
	for _, c := range conns {
		err = multierr.Append(err, c.Close())
	}
	s.wg.Wait()
	return err
}

// handleConn is the per-connection task (§4.4, §5). Its loop states map
// onto the spec's Reading/Parsing/Dispatching/Executing/Writing/Closing
// state machine: Read (Reading), Decode (Parsing), FromFrame
// (Dispatching), Execute (Executing), conn.Write (Writing); EOF or a fatal
// I/O error moves to Closing and exits the goroutine. Suspension only
// happens at conn.Read and conn.Write; decode, dispatch, and store access
// are synchronous.
func (s *Server) handleConn(nc net.Conn) {
	c := &Conn{
		netConn: nc,
		acc:     bytebufferpool.Get(),
		scratch: make([]byte, s.opts.ReadChunkSize),
	}
	defer func() {
		bytebufferpool.Put(c.acc)
		nc.Close()
		s.mu.Lock()
		delete(s.conns, nc)
		s.mu.Unlock()
		s.log.Debugw("connection closed", "remote", nc.RemoteAddr())
	}()

	s.log.Debugw("connection opened", "remote", nc.RemoteAddr())

	for {
		n, rerr := nc.Read(c.scratch)
		if n > 0 {
			c.acc.Write(c.scratch[:n])
		}
		if rerr != nil {
			if rerr != io.EOF {
				s.log.Warnw("connection read error", "remote", nc.RemoteAddr(), "err", rerr)
			}
			return
		}

		if action := s.drain(c); action == Close {
			return
		}
	}
}

// drain decodes and dispatches every complete frame currently sitting in
// c.acc, writing one reply per frame in strict FIFO order — frame n+1 is
// never decoded until frame n's reply has been sent (§5's ordering
// guarantee). It returns once the buffer holds no complete frame, or a
// command asked to close the connection.
func (s *Server) drain(c *Conn) Action {
	for {
		f, consumed, err := resp.Decode(c.acc.B)
		if err == resp.ErrIncomplete {
			return None
		}
		if err != nil {
			// A codec-level error leaves no reliable frame boundary to
			// resume from, so the accumulated bytes are discarded after
			// replying — otherwise the same malformed prefix would be
			// re-decoded forever. The connection itself stays open, per
			// the spec's "surface the failure to the peer" policy.
			//
			// Error replies are SimpleString, not SimpleError: the spec
			// deliberately preserves this wire-format quirk (§6, §7, §9).
			s.reply(c, frame.SimpleString("ERR "+err.Error()))
			c.acc.Reset()
			return None
		}

		leftover := append([]byte(nil), c.acc.B[consumed:]...)
		c.acc.Reset()
		c.acc.Write(leftover)

		cmd, cerr := command.FromFrame(f)
		if cerr != nil {
			s.reply(c, frame.SimpleString("ERR "+cerr.Error()))
			continue
		}

		reply := cmd.Execute(s.store)
		s.reply(c, reply)
	}
}

func (s *Server) reply(c *Conn, f frame.Frame) {
	out := resp.Encode(nil, f)
	if _, err := c.netConn.Write(out); err != nil {
		s.log.Warnw("connection write error", "remote", c.netConn.RemoteAddr(), "err", err)
	}
}
