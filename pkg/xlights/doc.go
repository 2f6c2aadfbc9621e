// Package xlights reads the two xLights show exports that drive an import.
//
//   - xlights_networks.xml describes controllers and their outputs
//     ([ParseNetworks]).
//   - xlights_rgbeffects.xml describes models and how they are wired to
//     controller ports ([ParseRGBEffects]).
//
// xLights has changed both formats over the years and users hand-edit them,
// so the parser is lenient: it accepts several root layouts and attribute
// spellings, and turns unresolvable values into missing values instead of
// failing. Only malformed XML is an error.
package xlights
