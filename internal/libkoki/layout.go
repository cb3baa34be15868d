package libkoki

/*
#include <stddef.h>
#include <linux/videodev2.h>
#include "koki.h"

// ycbcr_enc shares an anonymous union with hsv_enc, which cgo does not expose.
static size_t pix_ycbcr_enc_offset(void) {
	return offsetof(struct v4l2_pix_format, ycbcr_enc);
}
*/
import "C"

import "unsafe"

// Layout is the native size and field offsets of a mirrored record, as laid
// out by the C compiler.
type Layout struct {
	Size    uintptr
	Offsets map[string]uintptr
}

// NativeLayouts returns the C layout of every record mirrored in package
// koki, keyed by the Go type name. Offsets are keyed by Go field name.
func NativeLayouts() map[string]Layout {
	var (
		p2i    C.koki_point2Di_t
		p2f    C.koki_point2Df_t
		p3f    C.koki_point3Df_t
		bear   C.koki_bearing_t
		rot    C.koki_marker_rotation_t
		vertex C.koki_marker_vertex_t
		marker C.koki_marker_t
		clip   C.koki_clip_region_t
		cell   C.koki_cell_t
		grid   C.koki_grid_t
		params C.koki_camera_params_t
		quad   C.koki_quad_t
		label  C.koki_labelled_image_t
		garray C.koki_garray_t
		gslist C.koki_gslist_t
		buf    C.koki_buffer_t
		img    C.koki_image_t
		pix    C.struct_v4l2_pix_format
		format C.struct_v4l2_format
	)

	return map[string]Layout{
		"Point2Di": {
			Size:    unsafe.Sizeof(p2i),
			Offsets: map[string]uintptr{"X": unsafe.Offsetof(p2i.x), "Y": unsafe.Offsetof(p2i.y)},
		},
		"Point2Df": {
			Size:    unsafe.Sizeof(p2f),
			Offsets: map[string]uintptr{"X": unsafe.Offsetof(p2f.x), "Y": unsafe.Offsetof(p2f.y)},
		},
		"Point3Df": {
			Size: unsafe.Sizeof(p3f),
			Offsets: map[string]uintptr{
				"X": unsafe.Offsetof(p3f.x), "Y": unsafe.Offsetof(p3f.y), "Z": unsafe.Offsetof(p3f.z),
			},
		},
		"Bearing": {
			Size: unsafe.Sizeof(bear),
			Offsets: map[string]uintptr{
				"X": unsafe.Offsetof(bear.x), "Y": unsafe.Offsetof(bear.y), "Z": unsafe.Offsetof(bear.z),
			},
		},
		"MarkerRotation": {
			Size: unsafe.Sizeof(rot),
			Offsets: map[string]uintptr{
				"X": unsafe.Offsetof(rot.x), "Y": unsafe.Offsetof(rot.y), "Z": unsafe.Offsetof(rot.z),
			},
		},
		"MarkerVertex": {
			Size: unsafe.Sizeof(vertex),
			Offsets: map[string]uintptr{
				"Image": unsafe.Offsetof(vertex.image),
				"World": unsafe.Offsetof(vertex.world),
			},
		},
		"Marker": {
			Size: unsafe.Sizeof(marker),
			Offsets: map[string]uintptr{
				"Code":           unsafe.Offsetof(marker.code),
				"Centre":         unsafe.Offsetof(marker.centre),
				"Bearing":        unsafe.Offsetof(marker.bearing),
				"Distance":       unsafe.Offsetof(marker.distance),
				"Rotation":       unsafe.Offsetof(marker.rotation),
				"RotationOffset": unsafe.Offsetof(marker.rotation_offset),
				"Vertices":       unsafe.Offsetof(marker.vertices),
			},
		},
		"ClipRegion": {
			Size: unsafe.Sizeof(clip),
			Offsets: map[string]uintptr{
				"Mass": unsafe.Offsetof(clip.mass),
				"Min":  unsafe.Offsetof(clip.min),
				"Max":  unsafe.Offsetof(clip.max),
			},
		},
		"Cell": {
			Size: unsafe.Sizeof(cell),
			Offsets: map[string]uintptr{
				"NumPixels": unsafe.Offsetof(cell.num_pixels),
				"Sum":       unsafe.Offsetof(cell.sum),
				"Val":       unsafe.Offsetof(cell.val),
			},
		},
		"Grid": {
			Size: unsafe.Sizeof(grid),
		},
		"CameraParams": {
			Size: unsafe.Sizeof(params),
			Offsets: map[string]uintptr{
				"FocalLength":    unsafe.Offsetof(params.focal_length),
				"PrincipalPoint": unsafe.Offsetof(params.principal_point),
				"Size":           unsafe.Offsetof(params.size),
			},
		},
		"Quad": {
			Size: unsafe.Sizeof(quad),
			Offsets: map[string]uintptr{
				"Links":    unsafe.Offsetof(quad.links),
				"Vertices": unsafe.Offsetof(quad.vertices),
			},
		},
		"LabelledImage": {
			Size: unsafe.Sizeof(label),
			Offsets: map[string]uintptr{
				"Aliases": unsafe.Offsetof(label.aliases),
				"Clips":   unsafe.Offsetof(label.clips),
				"Data":    unsafe.Offsetof(label.data),
				"H":       unsafe.Offsetof(label.h),
				"W":       unsafe.Offsetof(label.w),
			},
		},
		"GArray": {
			Size: unsafe.Sizeof(garray),
			Offsets: map[string]uintptr{
				"Data": unsafe.Offsetof(garray.data),
				"Len":  unsafe.Offsetof(garray.len),
			},
		},
		"GSList": {
			Size: unsafe.Sizeof(gslist),
			Offsets: map[string]uintptr{
				"Data": unsafe.Offsetof(gslist.data),
				"Next": unsafe.Offsetof(gslist.next),
			},
		},
		"Buffer": {
			Size: unsafe.Sizeof(buf),
			Offsets: map[string]uintptr{
				"Length": unsafe.Offsetof(buf.length),
				"Start":  unsafe.Offsetof(buf.start),
			},
		},
		"ImageBuffer": {
			Size: unsafe.Sizeof(img),
			Offsets: map[string]uintptr{
				"Data":   unsafe.Offsetof(img.data),
				"Width":  unsafe.Offsetof(img.width),
				"Height": unsafe.Offsetof(img.height),
				"Stride": unsafe.Offsetof(img.stride),
			},
		},
		"PixFormat": {
			Size: unsafe.Sizeof(pix),
			Offsets: map[string]uintptr{
				"Width":        unsafe.Offsetof(pix.width),
				"Height":       unsafe.Offsetof(pix.height),
				"PixelFormat":  unsafe.Offsetof(pix.pixelformat),
				"Field":        unsafe.Offsetof(pix.field),
				"BytesPerLine": unsafe.Offsetof(pix.bytesperline),
				"SizeImage":    unsafe.Offsetof(pix.sizeimage),
				"Colorspace":   unsafe.Offsetof(pix.colorspace),
				"Priv":         unsafe.Offsetof(pix.priv),
				"Flags":        unsafe.Offsetof(pix.flags),
				"YCbCrEnc":     uintptr(C.pix_ycbcr_enc_offset()),
				"Quantization": unsafe.Offsetof(pix.quantization),
				"XferFunc":     unsafe.Offsetof(pix.xfer_func),
			},
		},
		"Format": {
			Size: unsafe.Sizeof(format),
			Offsets: map[string]uintptr{
				"Type": unsafe.Offsetof(format._type),
				"Raw":  unsafe.Offsetof(format.fmt),
			},
		},
	}
}
