// Package hooks runs user-authored Go scripts around lifecycle phases.
// Scripts are interpreted with yaegi, so riggers extend the pipeline
// without recompiling the tool.
package hooks
