package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPassID     = "pass_id"
	KeyScope      = "scope"
	KeyReason     = "reason"
	KeyPath       = "path"
	KeySource     = "source"
	KeyDest       = "dest"
	KeyInclude    = "include"
	KeyDepth      = "depth"
	KeyFiles      = "files"
	KeyDurationMS = "duration_ms"
	KeyOp         = "op"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func PassID(id string) slog.Attr      { return slog.String(KeyPassID, id) }
func Scope(s string) slog.Attr        { return slog.String(KeyScope, s) }
func Reason(r string) slog.Attr       { return slog.String(KeyReason, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Dest(p string) slog.Attr         { return slog.String(KeyDest, p) }
func Include(name string) slog.Attr   { return slog.String(KeyInclude, name) }
func Depth(d int) slog.Attr           { return slog.Int(KeyDepth, d) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Addr(addr string) slog.Attr      { return slog.String(KeyAddr, addr) }
func Method(m string) slog.Attr       { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func RemoteAddr(a string) slog.Attr   { return slog.String(KeyRemoteAddr, a) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
