package server

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"CampusTrade/config"
	"CampusTrade/logger"
	"CampusTrade/model"
	"CampusTrade/repository"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// GoodsHandler 商品相关接口的处理器
type GoodsHandler struct {
	goodsRepo repository.GoodsRepository
	cfg       *config.Config
}

// NewGoodsHandler 创建商品处理器
func NewGoodsHandler(goodsRepo repository.GoodsRepository, cfg *config.Config) *GoodsHandler {
	return &GoodsHandler{goodsRepo: goodsRepo, cfg: cfg}
}

// ListGoodsHandler 查询所有未售出的商品
func (h *GoodsHandler) ListGoodsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.goodsRepo.ListAll()
	if err != nil {
		logger.Error("[GoodsList] 查询商品列表失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    list,
	})
}

// UploadGoodsHandler 上传商品（带图片）
// 图片先落盘再写库；写库失败时不回滚已保存的图片文件。
func (h *GoodsHandler) UploadGoodsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32MB max memory
		writeFail(w, http.StatusBadRequest, "解析表单失败："+err.Error())
		return
	}

	goodid := r.FormValue("goodid")
	username := r.FormValue("username")
	goodname := r.FormValue("goodname")
	priceStr := r.FormValue("goodprice")
	category := r.FormValue("category")
	details := r.FormValue("details")

	if goodid == "" || username == "" || goodname == "" || priceStr == "" {
		writeFail(w, http.StatusBadRequest, "缺少必要参数（goodid、username、goodname或goodprice）")
		return
	}

	goodprice, err := strconv.ParseFloat(priceStr, 64)
	if err != nil || goodprice < 0 {
		writeFail(w, http.StatusBadRequest, "商品价格不合法")
		return
	}

	imageFile, imageHeader, err := r.FormFile("image")
	if err != nil {
		writeFail(w, http.StatusBadRequest, "缺少商品图片")
		return
	}
	defer imageFile.Close()

	// 检查商品ID是否已存在（查重与插入之间没有原子保证）
	existing, err := h.goodsRepo.GetByID(goodid)
	if err != nil {
		logger.Error("[UploadGoods] 查询商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}
	if existing != nil {
		writeFail(w, http.StatusBadRequest, "商品ID已存在")
		return
	}

	if err := os.MkdirAll(h.cfg.UploadDir, 0755); err != nil {
		logger.Error("[UploadGoods] 创建上传目录失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "图片上传失败："+err.Error())
		return
	}

	// 随机文件名，保留原始扩展名
	ext := filepath.Ext(imageHeader.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	fileName := uuid.New().String() + ext
	filePath := filepath.Join(h.cfg.UploadDir, fileName)

	if err := saveUploadedFile(imageFile, filePath); err != nil {
		logger.Error("[UploadGoods] 保存图片失败", logger.String("path", filePath), logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "图片上传失败："+err.Error())
		return
	}
	logger.Info("[UploadGoods] 图片已保存", logger.String("path", filePath))

	goods := &model.Goods{
		GoodID:    goodid,
		Username:  username,
		GoodName:  goodname,
		GoodPrice: goodprice,
		Category:  category,
		Details:   details,
		Img:       "/uploads/img/" + fileName,
		Ing:       false,
	}

	if err := h.goodsRepo.Insert(goods); err != nil {
		// 图片已经写入磁盘，这里不做清理，留下孤儿文件
		logger.Error("[UploadGoods] 商品入库失败", logger.String("goodid", goodid), logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	logger.Info("[UploadGoods] 商品上传成功", logger.String("goodid", goodid), logger.String("username", username))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "商品上传成功",
		"data":    goods,
	})
}

// UserGoodsHandler 查询某个用户未售出的商品
func (h *GoodsHandler) UserGoodsHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	list, err := h.goodsRepo.ListByUser(username)
	if err != nil {
		logger.Error("[UserGoods] 查询用户商品列表失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    list,
	})
}

// UpdateGoodsHandler 更新商品文本字段（goodname/goodprice/category）
func (h *GoodsHandler) UpdateGoodsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeFail(w, http.StatusBadRequest, "解析表单失败："+err.Error())
		return
	}

	goodid := r.FormValue("goodid")
	if goodid == "" {
		writeFail(w, http.StatusBadRequest, "缺少商品ID")
		return
	}

	goods, err := h.goodsRepo.GetByID(goodid)
	if err != nil {
		logger.Error("[UpdateGoods] 查询商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}
	if goods == nil {
		writeFail(w, http.StatusBadRequest, "商品不存在")
		return
	}

	// 仅覆盖传入的文本字段
	if goodname := r.FormValue("goodname"); goodname != "" {
		goods.GoodName = goodname
	}
	if priceStr := r.FormValue("goodprice"); priceStr != "" {
		goodprice, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || goodprice < 0 {
			writeFail(w, http.StatusBadRequest, "商品价格不合法")
			return
		}
		goods.GoodPrice = goodprice
	}
	if category := r.FormValue("category"); category != "" {
		goods.Category = category
	}

	rows, err := h.goodsRepo.Update(goods)
	if err != nil {
		logger.Error("[UpdateGoods] 更新商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	if rows > 0 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "商品信息更新成功",
			"data":    goods,
		})
	} else {
		writeFail(w, http.StatusInternalServerError, "更新失败")
	}
}

// DeleteGoodsHandler 删除商品，并尽力删除其图片文件
func (h *GoodsHandler) DeleteGoodsHandler(w http.ResponseWriter, r *http.Request) {
	goodid := mux.Vars(r)["goodid"]

	goods, err := h.goodsRepo.GetByID(goodid)
	if err != nil {
		logger.Error("[DeleteGoods] 查询商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}
	if goods == nil {
		writeFail(w, http.StatusBadRequest, "商品不存在")
		return
	}

	rows, err := h.goodsRepo.DeleteByID(goodid)
	if err != nil {
		logger.Error("[DeleteGoods] 删除商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	if rows > 0 {
		// 图片删除失败只记日志，不影响商品删除结果
		h.deleteImageFile(goods.Img)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "商品删除成功",
		})
	} else {
		writeFail(w, http.StatusInternalServerError, "删除失败")
	}
}

// GoodsDetailHandler 根据ID查询商品详情
func (h *GoodsHandler) GoodsDetailHandler(w http.ResponseWriter, r *http.Request) {
	goodid := mux.Vars(r)["goodid"]

	goods, err := h.goodsRepo.GetByID(goodid)
	if err != nil {
		logger.Error("[GoodsDetail] 查询商品详情失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}
	if goods == nil {
		writeFail(w, http.StatusNotFound, "商品不存在")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"goods":   goods,
	})
}

// PlaceOrderHandler 买家下单：写入 buyername，ing 保持未售出，等待商家确认
func (h *GoodsHandler) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GoodID    string `json:"goodid"`
		Buyername string `json:"buyername"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "请求体格式错误")
		return
	}

	if req.GoodID == "" || req.Buyername == "" {
		writeFail(w, http.StatusBadRequest, "缺少必要参数（goodid或buyername）")
		return
	}

	goods, err := h.goodsRepo.GetByID(req.GoodID)
	if err != nil {
		logger.Error("[PlaceOrder] 查询商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}
	if goods == nil {
		writeFail(w, http.StatusBadRequest, "商品不存在")
		return
	}

	if goods.Ing {
		writeFail(w, http.StatusBadRequest, "商品已被售出")
		return
	}

	// 重复下单会直接覆盖之前的 buyername，不保留订单历史
	goods.Buyername = &req.Buyername
	if _, err := h.goodsRepo.Update(goods); err != nil {
		logger.Error("[PlaceOrder] 更新商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	logger.Info("[PlaceOrder] 下单成功",
		logger.String("goodid", req.GoodID), logger.String("buyername", req.Buyername))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "下单成功，等待商家确认",
	})
}

// ConfirmSaleHandler 商家确认出售：ing 置为已售出
// 不校验是否已有买家下单，与既有前端的交互流程保持一致。
func (h *GoodsHandler) ConfirmSaleHandler(w http.ResponseWriter, r *http.Request) {
	goodid := mux.Vars(r)["goodid"]

	goods, err := h.goodsRepo.GetByID(goodid)
	if err != nil {
		logger.Error("[ConfirmSale] 查询商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}
	if goods == nil {
		writeFail(w, http.StatusBadRequest, "商品不存在")
		return
	}

	goods.Ing = true
	rows, err := h.goodsRepo.Update(goods)
	if err != nil {
		logger.Error("[ConfirmSale] 更新商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	if rows > 0 {
		logger.Info("[ConfirmSale] 出售确认成功", logger.String("goodid", goodid))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"message": "出售确认成功",
		})
	} else {
		writeFail(w, http.StatusInternalServerError, "更新状态失败")
	}
}

// SoldBySellerHandler 查询卖家已出售的商品
func (h *GoodsHandler) SoldBySellerHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	list, err := h.goodsRepo.ListSoldBySeller(username)
	if err != nil {
		logger.Error("[SoldBySeller] 查询卖家已出售商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    list,
	})
}

// SoldByBuyerHandler 查询买家已买入的商品
func (h *GoodsHandler) SoldByBuyerHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	list, err := h.goodsRepo.ListSoldByBuyer(username)
	if err != nil {
		logger.Error("[SoldByBuyer] 查询买家已买入商品失败", logger.ErrorField(err))
		writeFail(w, http.StatusInternalServerError, "系统错误："+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    list,
	})
}

// deleteImageFile 根据 img 的 URL 路径删除本地图片文件
func (h *GoodsHandler) deleteImageFile(imgPath string) {
	if imgPath == "" {
		return
	}

	fileName := strings.TrimPrefix(imgPath, "/uploads/img/")
	filePath := filepath.Join(h.cfg.UploadDir, fileName)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return
	}
	if err := os.Remove(filePath); err != nil {
		logger.Error("删除图片失败", logger.String("path", filePath), logger.ErrorField(err))
		return
	}
	logger.Info("图片已删除", logger.String("path", filePath))
}

// saveUploadedFile 将上传的文件写入目标路径
func saveUploadedFile(file multipart.File, destPath string) error {
	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, file)
	return err
}
