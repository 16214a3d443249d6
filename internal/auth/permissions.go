package auth

// Permission keys checked by the authorization gate.
const (
	PermissionManageUsers         = "manage_users"
	PermissionManageRoles         = "manage_roles"
	PermissionManageMasterData    = "manage_master_data"
	PermissionManageDocuments     = "manage_documents"
	PermissionUploadDocuments     = "upload_documents"
	PermissionApproveDocuments    = "approve_documents"
	PermissionViewDownloadLogs    = "view_download_logs"
	PermissionViewOwnDownloadLogs = "view_own_download_logs"
)

// Role slugs seeded at system initialization. Roles themselves are master
// data; this core only reads them.
const (
	RoleSlugRootAdmin       = "root-admin"
	RoleSlugDepartmentAdmin = "department-admin"
	RoleSlugReviewer        = "reviewer"

	// RoleSlugMember is the fixed non-privileged default assigned on public
	// self-registration regardless of what the caller supplies.
	RoleSlugMember = "member"
)

// BuiltinPermissions is the seeded capability catalog.
var BuiltinPermissions = []Permission{
	{Key: PermissionManageUsers, Description: "Manage identity records"},
	{Key: PermissionManageRoles, Description: "Manage role permission grants"},
	{Key: PermissionManageMasterData, Description: "Manage departments and other master data"},
	{Key: PermissionManageDocuments, Description: "Manage any document record"},
	{Key: PermissionUploadDocuments, Description: "Upload new documents"},
	{Key: PermissionApproveDocuments, Description: "Approve or reject submitted documents"},
	{Key: PermissionViewDownloadLogs, Description: "View all download logs"},
	{Key: PermissionViewOwnDownloadLogs, Description: "View download logs for own documents"},
}
