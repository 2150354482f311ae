package main

// General API documentation for swaggo. Run `swag init -g cmd/segmentd/docs.go` to regenerate docs/.
//
// @title           segmentd API
// @version         1.0
// @description     HTTP API for CT volume upload, 3D segmentation and result export.
//
// @contact.name   segmentd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
