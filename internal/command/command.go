// Package command implements the dispatch layer between the wire codec and
// the store: converting a decoded Array frame into a typed Command, and
// executing a Command against a store.Store to produce the reply Frame.
//
// This generalizes the teacher's raw `switch strings.ToLower(string(cmd.Args[0]))`
// dispatch (see IceFireDB/redhub's example/memory_kv/server.go and
// server.go) into a typed decode step, so that arity and UTF-8 validation
// happen once per command rather than being re-checked inline by every
// case arm.
package command

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"redhubkv/internal/store"
	"redhubkv/pkg/frame"
)

// ErrorKind classifies a command-layer error: InvalidCommand (unknown
// verb) or InvalidArgument (wrong arity, wrong frame shape, invalid UTF-8).
type ErrorKind string

const (
	KindInvalidCommand  ErrorKind = "invalid_command"
	KindInvalidArgument ErrorKind = "invalid_argument"
)

// Error is returned by FromFrame when a frame cannot be turned into a
// Command. The pipeline sends its Error() text back to the client, prefixed
// with "ERR ", as a SimpleString reply.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func invalidCommand(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidCommand, Msg: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// Verb identifies which command a Command holds.
type Verb int

const (
	Get Verb = iota
	Set
	HGet
	HSet
	HGetAll
)

// Command is the dispatch-layer sum type built from a decoded Array frame.
// Not every field is meaningful for every Verb; see FromFrame for which
// fields each Verb sets.
type Command struct {
	Verb  Verb
	Key   string
	Field string
	Value frame.Frame

	// Sort controls HGetAll reply ordering. It defaults to false (client
	// commands never set it); test-mode callers that need a deterministic
	// reply construct the Command directly with Sort: true instead of
	// going through FromFrame.
	Sort bool
}

// FromFrame converts a decoded Array-of-BulkStrings frame into a Command.
// It requires an Array frame, a known verb as the first element, and the
// exact arity for that verb; keys and field names must additionally decode
// as valid UTF-8.
func FromFrame(f frame.Frame) (Command, error) {
	if f.Kind != frame.KindArray {
		return Command{}, invalidCommand("expected array frame for command, got a different frame kind")
	}
	args := f.Items()
	if len(args) == 0 {
		return Command{}, invalidCommand("empty command")
	}
	verbFrame := args[0]
	if verbFrame.Kind != frame.KindBulkString {
		return Command{}, invalidCommand("command name must be a bulk string")
	}
	verbText := strings.ToLower(string(verbFrame.Bytes()))

	switch verbText {
	case "get":
		if len(args) != 2 {
			return Command{}, invalidArgument("wrong number of arguments for 'get' command")
		}
		key, err := bulkText("key", args[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: Get, Key: key}, nil

	case "set":
		if len(args) != 3 {
			return Command{}, invalidArgument("wrong number of arguments for 'set' command")
		}
		key, err := bulkText("key", args[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: Set, Key: key, Value: args[2]}, nil

	case "hget":
		if len(args) != 3 {
			return Command{}, invalidArgument("wrong number of arguments for 'hget' command")
		}
		key, err := bulkText("key", args[1])
		if err != nil {
			return Command{}, err
		}
		field, err := bulkText("field", args[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: HGet, Key: key, Field: field}, nil

	case "hset":
		if len(args) != 4 {
			return Command{}, invalidArgument("wrong number of arguments for 'hset' command")
		}
		key, err := bulkText("key", args[1])
		if err != nil {
			return Command{}, err
		}
		field, err := bulkText("field", args[2])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: HSet, Key: key, Field: field, Value: args[3]}, nil

	case "hgetall":
		if len(args) != 2 {
			return Command{}, invalidArgument("wrong number of arguments for 'hgetall' command")
		}
		key, err := bulkText("key", args[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Verb: HGetAll, Key: key}, nil

	default:
		return Command{}, invalidCommand("unknown command '%s'", verbText)
	}
}

// bulkText decodes a key/field argument slot: it must be a BulkString whose
// payload is valid UTF-8.
func bulkText(slot string, f frame.Frame) (string, error) {
	if f.Kind != frame.KindBulkString {
		return "", invalidArgument("%s must be a bulk string", slot)
	}
	b := f.Bytes()
	if !utf8.Valid(b) {
		return "", invalidArgument("%s is not valid UTF-8", slot)
	}
	return string(b), nil
}

// Execute runs the command against s and returns the reply Frame, per the
// success/miss reply table in §4.4.
func (c Command) Execute(s *store.Store) frame.Frame {
	switch c.Verb {
	case Get:
		v, ok := s.Get(c.Key)
		if !ok {
			return frame.Null()
		}
		return v

	case Set:
		s.Set(c.Key, c.Value)
		return frame.SimpleString("OK")

	case HGet:
		v, ok := s.HGet(c.Key, c.Field)
		if !ok {
			return frame.Null()
		}
		return v

	case HSet:
		s.HSet(c.Key, c.Field, c.Value)
		return frame.SimpleString("OK")

	case HGetAll:
		fields, ok := s.HGetAll(c.Key)
		if !ok {
			return frame.Array(nil)
		}
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		if c.Sort {
			sort.Strings(names)
		}
		items := make([]frame.Frame, 0, len(fields)*2)
		for _, name := range names {
			items = append(items, frame.BulkStringFromText(name), fields[name])
		}
		return frame.Array(items)
	}
	panic(fmt.Sprintf("command: unknown verb %d", c.Verb))
}
