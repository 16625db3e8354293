package proto

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype of the CBOR codec. Clients select
// it with grpc.CallContentSubtype(CodecName).
const CodecName = "cbor"

// MaxMessageSize bounds a single request or response. It leaves room for
// a 10 MiB file plus framing and for moderately sized search results.
const MaxMessageSize = 64 << 20

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("proto: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Catalog metadata travels as map[string]any; without this the
		// decoder would produce map[interface{}]interface{}.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("proto: CBOR decoder initialization failed: " + err.Error())
	}

	encoding.RegisterCodec(codec{})
}

// codec implements encoding.Codec over CBOR.
type codec struct{}

func (codec) Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

func (codec) Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

func (codec) Name() string { return CodecName }
