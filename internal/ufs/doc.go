// Package ufs implements the semantic engine of spec.md §4.5: the union
// mount algebra (directories, files, areas, mappings, view resolution,
// view-scoped iteration, and collapse) on top of internal/image,
// internal/ufsheader, internal/table and internal/tree.
//
// Grounded on the teacher's internal/adapter.FilesystemAdapter composition
// root (one struct wiring configuration, backend, circuit breaker, retry
// and metrics behind a single constructor) and on other_examples' union
// filesystem vocabulary for the directory/area/mapping naming.
package ufs
