// Package templates содержит встроенные HTML-шаблоны checkout-поверхности.
// Одна параметризованная поверхность вместо копий на локаль/валюту.
package templates

import "embed"

//go:embed *.html
var FS embed.FS
