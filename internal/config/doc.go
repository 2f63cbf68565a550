// Package config loads augmentation pipelines from YAML files.
//
// A pipeline file names each transformation by its registry kind and gives
// its weight and options:
//
//	schema_version: v1
//	seed: 42
//	p_aug: 0.8
//	return_params: true
//	augmentations:
//	  - name: shrink
//	    type: scale
//	    weight: 0.5
//	    options: {scale_range: [0.8, 1.0]}
//
// Variables prefixed CYRILL_PIPELINE__ override seed, p_aug and
// return_params. The augmentations list is read from the file only.
package config
