package model

// Goods represents a single marketplace listing.
// goodid 由客户端提供，创建后 goodid/username/img 不再变化。
// ing=false 表示在售，ing=true 表示已售出；buyername 在买家下单后写入。
type Goods struct {
	GoodID    string  `json:"goodid" gorm:"column:goodid;primaryKey;size:64"`
	Username  string  `json:"username" gorm:"column:username;size:100;index"`
	GoodName  string  `json:"goodname" gorm:"column:goodname;size:255"`
	GoodPrice float64 `json:"goodprice" gorm:"column:goodprice;type:decimal(10,2)"`
	Category  string  `json:"category" gorm:"column:category;size:100"`
	Img       string  `json:"img" gorm:"column:img;size:255"`
	Details   string  `json:"details" gorm:"column:details;type:text"`
	Ing       bool    `json:"ing" gorm:"column:ing;default:false"`
	Buyername *string `json:"buyername" gorm:"column:buyername;size:100"`
}

// TableName 指定 GORM 使用的表名
func (Goods) TableName() string {
	return "goods"
}
