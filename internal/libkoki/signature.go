package libkoki

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/ayusman/gokoki/internal/koki"
)

// Kind is the declared type of a foreign argument or return value.
type Kind int

const (
	Void Kind = iota
	Int32
	Uint8
	Uint16
	Float32
	String
	FormatRecord
	ImageRecord
	CameraParamsRecord
	MarkerArray
)

var kindNames = map[Kind]string{
	Void:               "void",
	Int32:              "int32",
	Uint8:              "uint8",
	Uint16:             "uint16",
	Float32:            "float32",
	String:             "string",
	FormatRecord:       "struct v4l2_format",
	ImageRecord:        "koki_image_t*",
	CameraParamsRecord: "koki_camera_params_t*",
	MarkerArray:        "GArray<koki_marker_t>*",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// records lists the native layouts a kind must match, each with the size of
// the Go type that mirrors it.
func (k Kind) records() []recordCheck {
	switch k {
	case FormatRecord:
		return []recordCheck{{"Format", unsafe.Sizeof(koki.Format{})}}
	case ImageRecord:
		return []recordCheck{{"ImageBuffer", unsafe.Sizeof(koki.ImageBuffer{})}}
	case CameraParamsRecord:
		return []recordCheck{{"CameraParams", unsafe.Sizeof(koki.CameraParams{})}}
	case MarkerArray:
		return []recordCheck{
			{"GArray", unsafe.Sizeof(koki.GArray{})},
			{"Marker", unsafe.Sizeof(koki.Marker{})},
		}
	}
	return nil
}

type recordCheck struct {
	layout string
	goSize uintptr
}

// Signature declares a foreign function.
type Signature struct {
	Symbol   string
	Args     []Kind
	Return   Kind
	Optional bool
}

func (s Signature) String() string {
	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s %s(%s)", s.Return, s.Symbol, strings.Join(args, ", "))
}

// Symbols bound by Open.
const (
	SymOpenCam     = "koki_v4l_open_cam"
	SymCloseCam    = "koki_v4l_close_cam"
	SymGetFormat   = "koki_v4l_get_format"
	SymSetFormat   = "koki_v4l_set_format"
	SymCRC12       = "koki_crc12"
	SymFindMarkers = "koki_find_markers"
	SymMarkersFree = "koki_markers_free"
)

// Signatures is every foreign function the Library calls.
var Signatures = []Signature{
	{Symbol: SymOpenCam, Args: []Kind{String}, Return: Int32},
	{Symbol: SymCloseCam, Args: []Kind{Int32}, Return: Void},
	{Symbol: SymGetFormat, Args: []Kind{Int32}, Return: FormatRecord},
	{Symbol: SymSetFormat, Args: []Kind{Int32, FormatRecord}, Return: Int32},
	{Symbol: SymCRC12, Args: []Kind{Uint8}, Return: Uint16},
	{Symbol: SymFindMarkers, Args: []Kind{ImageRecord, Float32, CameraParamsRecord}, Return: MarkerArray},
	{Symbol: SymMarkersFree, Args: []Kind{MarkerArray}, Return: Void, Optional: true},
}

// check verifies that every record the signature exchanges has the same size
// in Go as in the native layout table.
func (s Signature) check(layouts map[string]Layout) error {
	kinds := append([]Kind{s.Return}, s.Args...)
	for _, k := range kinds {
		for _, rc := range k.records() {
			native, ok := layouts[rc.layout]
			if !ok {
				return &SymbolError{Symbol: s.Symbol, Reason: fmt.Sprintf("no native layout for %s", rc.layout)}
			}
			if native.Size != rc.goSize {
				return &SymbolError{
					Symbol: s.Symbol,
					Reason: fmt.Sprintf("%s is %d bytes in Go but %d bytes natively", rc.layout, rc.goSize, native.Size),
				}
			}
		}
	}
	return nil
}
