package main

// General API documentation for swaggo. The generated OpenAPI document lives in
// internal/bridge/httphost/docs.go.
//
// @title           modelshim inference bridge
// @version         1.0
// @description     HTTP host for the lazily initialized user transform.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
