package events

// Topics for domain events emitted by the API.
const (
	TopicInvoiceCreated  = "invoice.created"
	TopicInvoiceIssued   = "invoice.issued"
	TopicInvoiceVoided   = "invoice.voided"
	TopicCustomerCreated = "customer.created"
	TopicProductUpdated  = "product.updated"
)
