// Package koki mirrors the native record layouts of libkoki and the GLib
// collections it hands back.
//
// Every record is a fixed-layout struct whose field order and widths match the
// C declarations exactly. The offset comments on each struct are the layout
// contract; libkoki's layout tests check them against the native compiler's
// sizeof and offsetof.
//
// Records are plain values. Collections (GArray, GSList) and LabelledImage
// reference memory owned by the native library: read them through ArrayView
// and ListView while the producing call's result is valid, and never free or
// retain them beyond that.
package koki
