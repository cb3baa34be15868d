package libkoki

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>
#include <linux/videodev2.h>
#include "koki.h"

typedef int (*open_cam_fn)(const char *);
typedef void (*close_cam_fn)(int);
typedef struct v4l2_format (*get_format_fn)(int);
typedef int (*set_format_fn)(int, struct v4l2_format);
typedef uint16_t (*crc12_fn)(uint8_t);
typedef koki_garray_t *(*find_markers_fn)(const koki_image_t *, float, const koki_camera_params_t *);
typedef void (*markers_free_fn)(koki_garray_t *);

static int call_open_cam(void *fn, const char *path) {
	return ((open_cam_fn)fn)(path);
}

static void call_close_cam(void *fn, int fd) {
	((close_cam_fn)fn)(fd);
}

static struct v4l2_format call_get_format(void *fn, int fd) {
	return ((get_format_fn)fn)(fd);
}

static int call_set_format(void *fn, int fd, struct v4l2_format fmt) {
	return ((set_format_fn)fn)(fd, fmt);
}

static uint16_t call_crc12(void *fn, uint8_t in) {
	return ((crc12_fn)fn)(in);
}

static koki_garray_t *call_find_markers(void *fn, const koki_image_t *img, float size, const koki_camera_params_t *params) {
	return ((find_markers_fn)fn)(img, size, params);
}

static void call_markers_free(void *fn, koki_garray_t *markers) {
	((markers_free_fn)fn)(markers);
}
*/
import "C"

import (
	"errors"
	"runtime"
	"unsafe"

	"github.com/ayusman/gokoki/internal/koki"
)

func dlError() string {
	if msg := C.dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown error"
}

func dlOpen(path string) (unsafe.Pointer, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	h := C.dlopen(cPath, C.RTLD_NOW|C.RTLD_LOCAL)
	if h == nil {
		return nil, errors.New(dlError())
	}
	return h, nil
}

func dlSym(handle unsafe.Pointer, name string) (unsafe.Pointer, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	C.dlerror()
	sym := C.dlsym(handle, cName)
	if sym == nil {
		return nil, errors.New(dlError())
	}
	return sym, nil
}

func dlClose(handle unsafe.Pointer) error {
	if C.dlclose(handle) != 0 {
		return errors.New(dlError())
	}
	return nil
}

// copyRecord copies a pointer-free record between its Go and C mirrors. The
// sizes are checked when the symbols are bound.
func copyRecord(dst, src unsafe.Pointer, n uintptr) {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

func callOpenCam(fn unsafe.Pointer, path string) int32 {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	return int32(C.call_open_cam(fn, cPath))
}

func callCloseCam(fn unsafe.Pointer, fd int32) {
	C.call_close_cam(fn, C.int(fd))
}

func callGetFormat(fn unsafe.Pointer, fd int32) koki.Format {
	cf := C.call_get_format(fn, C.int(fd))
	var f koki.Format
	copyRecord(unsafe.Pointer(&f), unsafe.Pointer(&cf), unsafe.Sizeof(f))
	return f
}

func callSetFormat(fn unsafe.Pointer, fd int32, f koki.Format) int32 {
	var cf C.struct_v4l2_format
	copyRecord(unsafe.Pointer(&cf), unsafe.Pointer(&f), unsafe.Sizeof(f))
	return int32(C.call_set_format(fn, C.int(fd), cf))
}

func callCRC12(fn unsafe.Pointer, in koki.Uint8) koki.Uint16 {
	return koki.Uint16(C.call_crc12(fn, C.uint8_t(in)))
}

// callFindMarkers returns libkoki's marker array, or nil.
func callFindMarkers(fn unsafe.Pointer, img koki.ImageBuffer, size float32, params koki.CameraParams) *koki.GArray {
	var pinner runtime.Pinner
	defer pinner.Unpin()
	pinner.Pin(img.Data)

	cImg := C.koki_image_t{
		data:   (*C.uint8_t)(unsafe.Pointer(img.Data)),
		width:  C.int32_t(img.Width),
		height: C.int32_t(img.Height),
		stride: C.int32_t(img.Stride),
	}
	var cParams C.koki_camera_params_t
	copyRecord(unsafe.Pointer(&cParams), unsafe.Pointer(&params), unsafe.Sizeof(params))

	return (*koki.GArray)(unsafe.Pointer(C.call_find_markers(fn, &cImg, C.float(size), &cParams)))
}

func callMarkersFree(fn unsafe.Pointer, markers *koki.GArray) {
	C.call_markers_free(fn, (*C.koki_garray_t)(unsafe.Pointer(markers)))
}
