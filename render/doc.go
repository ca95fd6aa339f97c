// Package render executes per-pixel transform programs over whole images.
//
// A Pass binds input textures to a Program, runs the program once per output
// pixel against an execution Context, and exposes the result either as a
// host-side PixelBuffer (ReadPixels) or as a sampleable Texture for a
// downstream pass. The built-in context is a software rasterizer; GPU
// backends plug in through RegisterBackend and share a device via
// gpucontext.DeviceProvider.
package render
