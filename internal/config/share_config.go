package config

type ShareConfig interface {
	GetShareMaxUploadBytes() int64
	GetSharePaymentRoute() string
}

type Share struct {
	file *FileValues
}

var _ ShareConfig = Share{}

func (s Share) GetShareMaxUploadBytes() int64 {
	if s.file != nil && s.file.Share.MaxUploadBytes > 0 {
		return s.file.Share.MaxUploadBytes
	}
	return 20 << 20 // 20 MiB
}

// GetSharePaymentRoute is where a shared file lands: the payment registration page
func (s Share) GetSharePaymentRoute() string {
	if s.file != nil && s.file.Share.PaymentRoute != "" {
		return s.file.Share.PaymentRoute
	}
	return "/payments/new"
}
