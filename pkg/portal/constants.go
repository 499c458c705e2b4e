package portal

import "time"

const (
	operationResolveCaller    = "resolve_caller"
	operationBootstrapProfile = "bootstrap_profile"
	operationUpdateContact    = "update_contact"
	operationResolveVehicle   = "resolve_vehicle"
	operationCreateOrder      = "create_order"
	operationUpdateStatus     = "update_status"
	operationUploadDocument   = "upload_document"
	operationDeleteDocument   = "delete_document"
	operationDownloadArchive  = "download_archive"
	operationCreateCheckout   = "create_checkout"
	operationCreateIntent     = "create_intent"
	operationVerifyPayment    = "verify_payment"
	operationPersistIntent    = "persist_payment_intent"
	operationRecordPayment    = "record_payment"
	operationChangeRole       = "change_role"
	operationAdminListOrders  = "admin_list_orders"
	operationAdminOrderDetail = "admin_order_detail"
	operationAdminStats       = "admin_stats"

	operationStatusOK       = "ok"
	operationStatusError    = "error"
	operationStatusDegraded = "degraded"
	operationStatusSkipped  = "skipped"

	referencePrefix       = "EM"
	referenceSuffixLength = 5
	referenceAlphabet     = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	defaultCurrency        = "EUR"
	defaultCheckoutTimeout = 30 * time.Second
	defaultMaxUploadBytes  = 10 << 20
	defaultPageLimit       = 20
	maxPageLimit           = 100
	archiveFetchLimit      = 4
)
