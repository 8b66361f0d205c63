// Package processors owns the processor registration table and the loaded
// processor instances shared across jobs.
//
// Processors are registered by name with a factory. Resolve instantiates each
// name at most once per Registry; concurrent resolution of the same name
// waits on the first construction and shares its result. Clear releases a
// processor's cached model set and is a no-op for names never loaded.
//
// Built-in processors declare the model files they need under models_dir and
// report missing or unreadable files through PreCheck. The inference backend
// itself lives outside this module; built-ins record what they would apply on
// the frame so downstream processors and the pipeline can chain on it.
package processors
