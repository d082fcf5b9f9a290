package notify

import "html/template"

var orderCreatedTpl = template.Must(template.New("order_created").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Order {{.ExternalID}}</h2>
  <p>Status: <b>{{.Status}}</b></p>
  <table style="border-collapse: collapse;">
    <tr><th align="left">Product</th><th>Qty</th><th>Price</th></tr>
    {{range .Items}}<tr><td>{{.ProductID}}</td><td>{{.Qty}}</td><td>{{.Price.StringFixed 2}}</td></tr>
    {{end}}
  </table>
  <p><b>Total: {{.Total.StringFixed 2}}</b></p>
</body>
</html>`))

var adminNoticeTpl = template.Must(template.New("admin_notice").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h3>{{.Title}}</h3>
  <ul>{{range .Lines}}<li>{{.}}</li>{{end}}</ul>
</body>
</html>`))

type adminNotice struct {
	Title string
	Lines []string
}
