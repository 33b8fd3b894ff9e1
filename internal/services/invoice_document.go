package services

import (
	"bytes"
	"fmt"
	"subtrack-api/internal/models"
	"text/tabwriter"
)

const documentDate = "2006-01-02"

// RenderInvoiceText lays out an invoice as a plain-text document
func RenderInvoiceText(inv *models.Invoice, customer *models.User, subscriptionNumber string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "INVOICE %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&buf, "Status: %s\n", inv.Status)
	fmt.Fprintf(&buf, "Subscription: %s\n", subscriptionNumber)
	fmt.Fprintf(&buf, "Issue date: %s\n", inv.IssueDate.Format(documentDate))
	if inv.DueDate != nil {
		fmt.Fprintf(&buf, "Due date: %s\n", inv.DueDate.Format(documentDate))
	}
	buf.WriteString("\nBill to:\n")
	if customer.FullName != "" {
		fmt.Fprintf(&buf, "  %s\n", customer.FullName)
	}
	if customer.Company != "" {
		fmt.Fprintf(&buf, "  %s\n", customer.Company)
	}
	fmt.Fprintf(&buf, "  %s\n\n", customer.Email)

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "Description\tQty\tUnit price\tSubtotal\tDiscount\tTax\tTotal\t")
	for _, l := range inv.Lines {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			l.Description, l.Quantity,
			l.UnitPrice.StringFixed(2), l.Subtotal.StringFixed(2),
			l.DiscountAmount.StringFixed(2), l.TaxAmount.StringFixed(2),
			l.LineTotal.StringFixed(2))
	}
	w.Flush()

	buf.WriteString("\n")
	w = tabwriter.NewWriter(&buf, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Subtotal\t%s\t\n", inv.Subtotal.StringFixed(2))
	fmt.Fprintf(w, "Discount\t-%s\t\n", inv.DiscountTotal.StringFixed(2))
	fmt.Fprintf(w, "Tax\t%s\t\n", inv.TaxTotal.StringFixed(2))
	fmt.Fprintf(w, "Total\t%s\t\n", inv.Total.StringFixed(2))
	w.Flush()

	if inv.Notes != "" {
		fmt.Fprintf(&buf, "\nNotes: %s\n", inv.Notes)
	}
	return buf.Bytes()
}
