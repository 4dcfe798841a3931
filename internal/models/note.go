package models

// Note 笔记，归创建者所有；TenantID 在创建时复制自创建者，之后不变
type Note struct {
	BaseModel
	Title    string `json:"title" gorm:"not null;size:255"`
	Content  string `json:"content" gorm:"not null;type:text"`
	UserID   uint   `json:"userId" gorm:"not null;index"`
	TenantID uint   `json:"tenantId" gorm:"not null;index"`

	Owner *User      `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	User  *NoteOwner `json:"user,omitempty" gorm:"-"`
}

// TableName 表名
func (n *Note) TableName() string {
	return "notes"
}

// NoteOwner 笔记列表中附带的作者信息
type NoteOwner struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// AttachOwner 根据已加载的 Owner 填充对外的作者信息
func (n *Note) AttachOwner() {
	if n.Owner != nil {
		n.User = &NoteOwner{ID: n.Owner.ID, Email: n.Owner.Email}
	}
}
