package grpcserver

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/mtiwari1/chunkvault/internal/storage"
)

// mapStorageError converts engine errors to gRPC status errors. The
// message starts with the kind name so clients can recover it exactly;
// the code alone cannot tell InvalidOperation from InvalidFileType.
func mapStorageError(err error) error {
	kind := storage.KindOf(err)
	return status.Errorf(codeFor(kind), "%s: %v", kind, err)
}

// KindFromError recovers the storage kind from a status error returned by
// the service. ok is false for errors that did not originate in the engine,
// such as transport failures or deadlines.
func KindFromError(err error) (kind storage.Kind, ok bool) {
	st, isStatus := status.FromError(err)
	if !isStatus || st.Code() == codes.OK {
		return storage.KindSystemError, false
	}
	if prefix, _, found := strings.Cut(st.Message(), ": "); found {
		if k, ok := storage.ParseKind(prefix); ok {
			return k, true
		}
	}
	switch st.Code() {
	case codes.NotFound:
		return storage.KindFileNotFound, true
	case codes.AlreadyExists:
		return storage.KindFileAlreadyExists, true
	case codes.InvalidArgument:
		return storage.KindInvalidOperation, true
	case codes.ResourceExhausted:
		return storage.KindStorageLimit, true
	case codes.Internal:
		return storage.KindSystemError, true
	}
	return storage.KindSystemError, false
}

// AsStorageError turns a status error back into a *storage.Error so that
// callers can use errors.Is against the storage sentinels. Errors that do
// not carry a kind are returned unchanged.
func AsStorageError(err error) error {
	if err == nil {
		return nil
	}
	kind, ok := KindFromError(err)
	if !ok {
		return err
	}
	msg := status.Convert(err).Message()
	if _, rest, found := strings.Cut(msg, ": "); found {
		msg = rest
	}
	return &storage.Error{Kind: kind, Op: "rpc", Err: errors.New(msg)}
}
