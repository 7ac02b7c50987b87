package main

// General API documentation for swaggo. Run `swag init -g cmd/tstated/main.go` to generate docs.
//
// @title           tstated API
// @version         1.0
// @description     HTTP API for the per-CPU throttle-state compensation daemon.
//
// @contact.name   tstated maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
