package main

// General API documentation for swaggo. Generate with `swag init -g cmd/vlmeval/docs.go`.
//
// @title           vlmeval API
// @version         1.0
// @description     Evaluate and compare vision-language models served by local or remote backends.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
