// Package paths names the files gridstitch writes.
//
// # Layout
//
//	<out-dir>/
//	  ├── grid-49.png                 (stitched, cropped grid)
//	  ├── grid-49.rgb24.zst           (optional uncropped canvas dump)
//	  └── .grid-50.<uuid>.png         (staging file while encoding)
//
// When several inputs are processed in one run, output names are prefixed
// with the input's base name (IMG_0001-grid-49.png).
//
// # Usage
//
//	final := paths.GridOutput(cfg.Output.Dir, grid.ID, cfg.Output.Format)
//	staging := paths.Staging(final)
//	// encode into staging, then os.Rename(staging, final)
package paths
